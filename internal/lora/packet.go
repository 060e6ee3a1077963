// Package lora holds the data model shared by the collision evaluator,
// gateway receiver and node MAC state machine: the over-the-air packet and
// the small set of enums describing it.
package lora

// Band selects which sensitivity table and preamble/header rules the
// airtime calculator applies.
type Band int

const (
	BandSubGHz Band = iota
	Band24GHz
)

// PacketType distinguishes a collision-avoidance RTS from the DATA payload
// it reserves the channel for. Retyping a packet changes its payload
// length and, through that, its time on air.
type PacketType int

const (
	DataPacket PacketType = iota
	RTSPacket
)

func (t PacketType) String() string {
	if t == RTSPacket {
		return "RTS"
	}
	return "DATA"
}

// RTSPayloadLen is the fixed RTS payload size (bytes) used by the
// reference MAC regardless of the node's configured DATA length.
const RTSPayloadLen = 5

// Packet is one over-the-air transmission attempt. A node owns exactly one
// Packet instance across its lifetime, retyping it between RTS and DATA
// rather than allocating a new one per phase.
type Packet struct {
	NodeID int
	Type   PacketType

	SF   int     // spreading factor
	BWKHz float64 // bandwidth, kHz (203.125..1625 for 2.4GHz presets)
	CR   int     // coding rate, 1..4
	FreqHz float64

	TxPowerDBm float64
	RSSIDBm    float64

	SymTimeMs   float64 // time of one symbol
	TPreambleMs float64 // preamble duration, serves as DIFS

	DataLen    int     // configured DATA payload length, bytes
	PayloadLen int     // pl: current payload length (5 for RTS, DataLen for DATA)
	RectimeMs  float64 // time on air of the packet in its current Type

	Collided  bool
	Processed bool
	Lost      bool

	AddTimeMs float64 // virtual time the packet started arriving at the gateway
}

// AirtimeFunc computes the time on air of a packet with the given
// parameters; internal/airtime.Compute satisfies it. Packet takes the
// function as a parameter instead of importing internal/airtime directly
// to avoid a dependency cycle with the package that constructs Packets
// from CLI-selected experiment presets.
type AirtimeFunc func(band Band, sf, cr, payloadLen int, bwKHz float64) float64

// SetType retypes the packet between RTS and DATA and recomputes its
// payload length and time on air, per the "round trip" invariant: DATA
// round-trips to its original RectimeMs after a DATA→RTS→DATA cycle.
func (p *Packet) SetType(t PacketType, band Band, airtime AirtimeFunc) {
	p.Type = t
	if t == RTSPacket {
		p.PayloadLen = RTSPayloadLen
	} else {
		p.PayloadLen = p.DataLen
	}
	p.RectimeMs = airtime(band, p.SF, p.CR, p.PayloadLen, p.BWKHz)
}
