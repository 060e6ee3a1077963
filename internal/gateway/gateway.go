// Package gateway implements the single base-station receiver (C3): the
// in-flight packet set, demodulator-capacity-limited processing, the
// collision evaluation against every other in-flight packet, and the
// listening-node NAV-hint propagation a successfully-decoded RTS or DATA
// header triggers.
package gateway

import (
	"github.com/CongducPham/lorasimmac/internal/lora"
	"github.com/CongducPham/lorasimmac/internal/radio"
)

// Listener is the subset of node MAC state the gateway needs to propagate
// NAV hints, implemented by internal/mac.Node. Gateway depends only on
// this interface, not on the mac package, so node code can call into the
// gateway without an import cycle.
type Listener interface {
	ID() int
	IsListening() bool
	HasReceptionHint() bool
	MarkReceivedRTS(fromNodeID int, atMs float64, navDataLen int)
	MarkReceivedData(fromNodeID int, atMs float64, navLen int)
	CancelReceivedRTSFrom(nodeID int)
	CancelReceivedDataFrom(nodeID int)
}

// Gateway is the network's single base station.
type Gateway struct {
	MaxReceives   int  // demodulator capacity: packets decodable concurrently
	FullCollision bool // full freq+SF+timing+power analysis vs. simplified freq+SF-only
	CA            bool // whether NAV-hint propagation applies (RTS/CSMA-CA MAC only)
	MaxPayloadLen int  // NAV sizing for a received DATA header (max_payload_size)

	inFlight  []*lora.Packet
	listeners []Listener
}

// New creates a Gateway.
func New(maxReceives int, fullCollision, ca bool, maxPayloadLen int) *Gateway {
	return &Gateway{MaxReceives: maxReceives, FullCollision: fullCollision, CA: ca, MaxPayloadLen: maxPayloadLen}
}

// SetListeners registers every node in the network as a candidate NAV-hint
// recipient. Call once after all nodes are constructed.
func (g *Gateway) SetListeners(listeners []Listener) {
	g.listeners = listeners
}

// Arrive evaluates a newly-arriving packet against every packet already
// in flight, marks collision casualties, propagates NAV hints on a clean
// arrival, and returns whether pkt itself collided. Call before adding pkt
// to the in-flight set via Enter.
func (g *Gateway) Arrive(pkt *lora.Packet, nowMs float64) (collided bool) {
	processing := 0
	for _, other := range g.inFlight {
		if other.Processed {
			processing++
		}
	}
	pkt.Processed = processing <= g.MaxReceives

	newlyCollided := map[*lora.Packet]bool{}
	for _, other := range g.inFlight {
		if other.NodeID == pkt.NodeID {
			continue
		}
		var casualties []*lora.Packet
		if g.FullCollision {
			casualties = radio.Collides(nowMs, pkt, other)
		} else if radio.CollidesSimple(pkt, other) {
			casualties = []*lora.Packet{pkt, other}
		}
		for _, c := range casualties {
			if !c.Collided {
				newlyCollided[c] = true
			}
			c.Collided = true
			if c == pkt {
				collided = true
			}
		}
	}

	if g.CA {
		for other := range newlyCollided {
			if other == pkt {
				continue
			}
			for _, l := range g.listeners {
				l.CancelReceivedRTSFrom(other.NodeID)
				l.CancelReceivedDataFrom(other.NodeID)
			}
		}
	}

	if collided {
		return true
	}

	if g.CA {
		for _, l := range g.listeners {
			if l.ID() == pkt.NodeID {
				continue
			}
			if !l.IsListening() || l.HasReceptionHint() {
				continue
			}
			if pkt.Type == lora.RTSPacket {
				l.MarkReceivedRTS(pkt.NodeID, nowMs, pkt.DataLen)
			} else {
				l.MarkReceivedData(pkt.NodeID, nowMs, g.MaxPayloadLen)
			}
		}
	}
	return false
}

// Enter adds pkt to the in-flight set, once Arrive has been evaluated.
func (g *Gateway) Enter(pkt *lora.Packet) {
	g.inFlight = append(g.inFlight, pkt)
}

// Depart removes pkt from the in-flight set once its transmission (and
// the gateway's verdict on it) is final.
func (g *Gateway) Depart(pkt *lora.Packet) {
	for i, p := range g.inFlight {
		if p == pkt {
			g.inFlight = append(g.inFlight[:i], g.inFlight[i+1:]...)
			return
		}
	}
}
