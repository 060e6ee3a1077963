// Package mac implements the per-node MAC state machine (C4): traffic
// generation, the ten-state RTS/NAV collision-avoidance protocol, and the
// simpler ALOHA / ALOHA+CSMA alternative it falls back to when collision
// avoidance is disabled. Grounded on the reference MAC's transmit()
// coroutine: a flat sequence of state-gated blocks re-walked in full on
// every packet cycle, with scheduler suspensions (Sleep) landing exactly
// where the original's env.timeout yields did.
package mac

import (
	"github.com/CongducPham/lorasimmac/internal/airtime"
	"github.com/CongducPham/lorasimmac/internal/gateway"
	"github.com/CongducPham/lorasimmac/internal/lora"
	"github.com/CongducPham/lorasimmac/internal/prng"
	"github.com/CongducPham/lorasimmac/internal/sim"
)

// Config holds the MAC parameters shared by every node in a run.
type Config struct {
	Discipline    Discipline
	Band          lora.Band
	CA1, CA2      bool // CA1 skips phase-2 listening; CA2 is not read by the state machine
	Experiment    int  // selects the schedule_tx inter-transmission distribution for experiments 6/7

	WL, W3, Wnav int // listening/backoff windows, in DIFS units
	W2           int
	W2afterNAV   int // substituted for W2 when re-entering WANT_TRANSMIT straight from a completed NAV
	P            int // phase1-vs-phase2 split threshold, percent

	CheckBusy, CheckBusyRTS bool
	CCAProb                 int // percent chance a busy channel is actually detected as busy

	WbusyMin, WbusyBE, WbusyMaxBE int
	WbusyExpBackoff               bool
	WbusyAddMaxToA                bool // ALOHA+CSMA only: add a full max-payload airtime to each busy backoff

	NRetry    int // data retry budget; reaching 0 aborts the current transmission
	NRetryRTS int // RTS retry budget; <= 0 means unlimited (node.n_retry_rts pinned to 1, never decremented)

	MaxPayloadSize int // NAV sizing constant for a DATA header (max_payload_size)

	FullCollision bool

	TargetSentPacket int // global-processed-count stop threshold; 0 disables early termination
}

// GlobalStats is the simulation-wide counters the reference implementation
// keeps as module globals rather than per-node fields: overall DER inputs
// and inter-transmission timing, shared and updated by every node. The
// scheduler hands every node the same instance; no locking is needed since
// only one node's non-suspending code ever runs at a time.
type GlobalStats struct {
	NrLost, NrCollisions, NrReceived, NrProcessed int
	NrRTSLost, NrRTSCollisions, NrRTSReceived, NrRTSProcessed int

	NTransmit         int
	LastTransmitTime  float64
	InterTransmitTime float64
	InterTransmitBin  []int // index: seconds between transmissions, capped at len-1

	// EndSimMs records the virtual time the first node tripped the
	// TargetSentPacket stop condition, for reporting only; every other node
	// stops on its own next check of the same condition, or at the
	// scheduler's simtime horizon.
	EndSimMs float64
}

// NewGlobalStats allocates a GlobalStats with a bin sized for the given
// number of inter-transmission-time seconds tracked.
func NewGlobalStats(maxInterTransmitSeconds int) *GlobalStats {
	return &GlobalStats{InterTransmitBin: make([]int, maxInterTransmitSeconds+1)}
}

// NodeStats are the per-node counters the reference implementation keeps on
// myNode: transmission and retry history, CCA outcomes, and how long a node
// listened before overhearing an RTS/DATA header (listening windows that
// end with nothing overheard add nothing to TotalListenTime).
type NodeStats struct {
	NDataSent     int
	TotalRetry    int
	RetryBin      []int

	NRTSSent      int
	TotalRetryRTS int
	RetryRTSBin   []int

	NAborted int
	Latency  float64

	NCCA                                   int
	NBusyRTS, NBusyRTSP1, NBusyData        int
	TotalListenTime                        float64
	NReceiveNavDataP1, NReceiveNavDataP2   int
	NReceiveNavRTSP1, NReceiveNavRTSP2     int
}

// Node is one end device: its traffic source, its owned Packet, and its
// MAC state machine. Node implements gateway.Listener so the gateway can
// deliver NAV hints directly to it.
type Node struct {
	id      int
	cfg     *Config
	gw      *gateway.Gateway
	sched   *sim.Scheduler
	airtime lora.AirtimeFunc

	periodMs float64 // average inter-transmission time
	uniform  bool    // traffic distribution: uniform(period-5s,period+5s) vs exponential(period)
	cycle    int

	packet *lora.Packet
	state  State

	wantTransmitTime float64

	myP       int
	cca       bool
	nav       int // payload length (bytes) of the DATA a NAV hint reserved the channel for
	w2        int // node.W2, possibly overridden to W2afterNAV on NAV-triggered re-entry
	backoff   int
	wbusyBE   int
	nRetry    int
	nRetryRTS int

	listenStart float64

	receiveRTS     bool
	receiveRTSFrom int
	receiveRTSTime float64

	receiveData     bool
	receiveDataFrom int
	receiveDataTime float64

	Stats NodeStats

	globals *GlobalStats
}

// NewNode constructs a node ready to run. periodMs is its average
// inter-transmission interval; uniform selects the uniform(period-5s,
// period+5s) traffic distribution over the default exponential one.
func NewNode(id int, cfg *Config, gw *gateway.Gateway, sched *sim.Scheduler, airtime lora.AirtimeFunc, globals *GlobalStats, pkt *lora.Packet, periodMs float64, uniform bool) *Node {
	n := &Node{
		id: id, cfg: cfg, gw: gw, sched: sched, airtime: airtime, globals: globals,
		packet: pkt, periodMs: periodMs, uniform: uniform,
		state: ScheduleTX,
		w2:    cfg.W2, wbusyBE: cfg.WbusyBE,
		nRetry: cfg.NRetry,
	}
	if cfg.NRetryRTS > 0 {
		n.nRetryRTS = cfg.NRetryRTS
	} else {
		n.nRetryRTS = 1
	}
	n.Stats.RetryBin = make([]int, cfg.NRetry+1)
	n.Stats.RetryRTSBin = make([]int, maxInt(cfg.NRetryRTS, 1)+1)
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ID, IsListening and HasReceptionHint implement gateway.Listener.
func (n *Node) ID() int { return n.id }

// IsListening reports whether this node is currently in one of the two
// RTS-listening phases, the only states where a NAV hint means anything.
func (n *Node) IsListening() bool {
	return n.state == Phase1Listen || n.state == Phase2Listen
}

func (n *Node) HasReceptionHint() bool {
	return n.receiveRTS || n.receiveData
}

// MarkReceivedRTS and MarkReceivedData implement gateway.Listener: they
// record that this node decoded another node's RTS or DATA header while
// listening, for the listening-phase blocks to act on once the listening
// window ends.
func (n *Node) MarkReceivedRTS(fromNodeID int, atMs float64, navDataLen int) {
	n.receiveRTS = true
	n.receiveRTSFrom = fromNodeID
	n.receiveRTSTime = atMs
	n.nav = navDataLen
}

func (n *Node) MarkReceivedData(fromNodeID int, atMs float64, navLen int) {
	n.receiveData = true
	n.receiveDataFrom = fromNodeID
	n.receiveDataTime = atMs
	n.nav = navLen
}

func (n *Node) CancelReceivedRTSFrom(nodeID int) {
	if n.receiveRTS && n.receiveRTSFrom == nodeID {
		n.receiveRTS = false
	}
}

func (n *Node) CancelReceivedDataFrom(nodeID int) {
	if n.receiveData && n.receiveDataFrom == nodeID {
		n.receiveData = false
	}
}

// DataRectimeMs and RTSRectimeMs are the DATA/RTS time-on-air figures a
// report prints alongside the per-node counters, mirroring the
// reference implementation's precomputed node.data_rectime/node.rts_rectime
// (independent of whichever Type the node's one owned Packet currently has).
func (n *Node) DataRectimeMs() float64 {
	return n.airtime(n.cfg.Band, n.packet.SF, n.packet.CR, n.packet.DataLen, n.packet.BWKHz)
}

func (n *Node) RTSRectimeMs() float64 {
	return n.airtime(n.cfg.Band, n.packet.SF, n.packet.CR, lora.RTSPayloadLen, n.packet.BWKHz)
}

// TPreambleMs is the packet's DIFS unit, constant for the node's lifetime.
func (n *Node) TPreambleMs() float64 { return n.packet.TPreambleMs }

// TxPowerDBm is the node's (possibly experiment-5-reduced) transmit power.
func (n *Node) TxPowerDBm() float64 { return n.packet.TxPowerDBm }

// SF is the node's spreading factor, the energy model's CAD-consumption
// table index.
func (n *Node) SF() int { return n.packet.SF }

// SymTimeMs is the duration of one LoRa symbol at the node's current SF/BW.
func (n *Node) SymTimeMs() float64 { return n.packet.SymTimeMs }

// Run is the node's scheduler-driven goroutine entry point. It walks the
// full packet-transmission cycle repeatedly until the scheduler's simtime
// horizon stops waking it, or this node individually trips the
// TargetSentPacket stop condition.
func (n *Node) Run() {
	for {
		if n.cfg.Discipline == CollisionAvoidance {
			n.turnCA()
		} else {
			n.turnAloha()
		}
		if n.cfg.TargetSentPacket > 0 && n.globals.NrProcessed > n.cfg.TargetSentPacket {
			if n.globals.EndSimMs == 0 {
				n.globals.EndSimMs = n.sched.Now()
			}
			n.sched.Finish(n.id)
			return
		}
	}
}

func (n *Node) scheduleWait() float64 {
	if n.cfg.Experiment == 6 {
		return n.periodMs*float64(n.cycle) - n.sched.Now() + float64(n.id)*100
	}
	if n.cfg.Experiment == 7 {
		return n.periodMs*float64(n.cycle) - n.sched.Now() + float64(n.id)*500
	}
	if n.uniform {
		lo := n.periodMs - 5000
		if lo < 2000 {
			lo = 2000
		}
		return prng.UniformFloat(lo, n.periodMs+5000)
	}
	return prng.Exponential(n.periodMs)
}

// checkCCA runs one clear-channel-assessment draw against the given busy
// flags, mirroring the original's "does the channel look busy, and if so
// does the CCA actually detect it" pair of checks. It reports whether the
// channel was found busy, and which kind of traffic (if any) it was busy
// with, leaving the caller to bump whichever n_busy_* counters apply.
func (n *Node) checkCCA(rtsBusy, dataBusy bool) (foundBusy, wasRTSBusy, wasDataBusy bool) {
	n.Stats.NCCA++
	if !rtsBusy && !dataBusy {
		return false, false, false
	}
	wasRTSBusy, wasDataBusy = rtsBusy, !rtsBusy && dataBusy
	foundBusy = n.cfg.CCAProb != 0 && prng.UniformInt(1, 100) <= n.cfg.CCAProb
	return
}

func (n *Node) backoffWbusy() {
	n.backoff = prng.UniformInt(n.cfg.WbusyMin, 1<<uint(n.wbusyBE))
	if n.cfg.WbusyExpBackoff && n.wbusyBE < n.cfg.WbusyMaxBE {
		n.wbusyBE++
	}
}

// navPeriodFor computes the time-on-air of a hypothetical DATA packet
// node.nav bytes long, the unit the original's NAV computations are
// expressed in.
func (n *Node) navPeriodFor(payloadLen int) float64 {
	return n.airtime(n.cfg.Band, n.packet.SF, n.packet.CR, payloadLen, n.packet.BWKHz)
}

func (n *Node) extraNavDIFS() int {
	if n.cfg.Wnav != 0 {
		return prng.UniformInt(0, n.cfg.Wnav)
	}
	return 0
}

// ///////////////////////////////////////////////////////////////////////
// Collision-avoidance (RTS/NAV) discipline.
// ///////////////////////////////////////////////////////////////////////

func (n *Node) turnCA() {
	// schedule_tx
	if n.state == ScheduleTX {
		wait := n.scheduleWait()
		n.cycle++
		n.state = WantTransmit
		n.sched.Sleep(n.id, wait)
	}

	// want_transmit -> start_CA
	if n.state == WantTransmit && n.packet.Type == lora.DataPacket {
		if n.nRetry == 0 {
			n.Stats.NAborted++
			n.nRetry = n.cfg.NRetry
			n.wbusyBE = n.cfg.WbusyBE
			n.cca = false
			n.nav = 0
			n.state = ScheduleTX
		} else {
			switch {
			case n.cca:
				n.cca = false
			case n.nav != 0:
				n.nav = 0
				if n.cfg.W2afterNAV != n.cfg.W2 {
					n.w2 = n.cfg.W2afterNAV
				} else {
					n.w2 = n.cfg.W2
				}
			default:
				n.wantTransmitTime = n.sched.Now()
				n.recordTransmitTiming()
			}

			busy := false
			if n.cfg.CheckBusy {
				var wasRTS, wasData bool
				busy, wasRTS, wasData = n.checkCCA(n.sched.Busy.RTSBusy, n.sched.Busy.DataBusy)
				if wasRTS {
					n.Stats.NBusyRTS++
					n.Stats.NBusyRTSP1++
				} else if wasData {
					n.Stats.NBusyData++
				}
			}
			if busy {
				n.backoffWbusy()
				n.cca = true
				n.nRetry--
				dur := float64(n.backoff) * n.packet.TPreambleMs
				n.sched.Sleep(n.id, dur)
			} else {
				n.myP = prng.UniformInt(0, 100)
				n.state = StartCA
				n.packet.SetType(lora.RTSPacket, n.cfg.Band, n.airtime)
			}
		}
	}

	// start_CA -> phase1_listen | phase2_backoff
	if n.state == StartCA && n.packet.Type == lora.RTSPacket {
		if n.myP > n.cfg.P {
			n.state = Phase1Listen
			n.listenStart = n.sched.Now()
			dur := float64(n.cfg.WL)*n.packet.TPreambleMs + n.packet.RectimeMs
			n.sched.Sleep(n.id, dur)
		} else {
			n.state = Phase2Backoff
			n.backoff = prng.UniformInt(0, n.w2)
			n.sched.Sleep(n.id, float64(n.backoff)*n.packet.TPreambleMs)
		}
	}

	// phase1_listen -> start_nav | phase2_backoff (no RTS heard)
	if n.state == Phase1Listen && !n.receiveRTS {
		if n.receiveData {
			n.receiveData = false
			n.Stats.TotalListenTime += n.receiveDataTime - n.listenStart
			n.Stats.NReceiveNavDataP1++
			n.enterNAVFromData()
		} else {
			n.backoff = prng.UniformInt(0, n.cfg.W2)
			n.state = Phase2Backoff
			n.sched.Sleep(n.id, float64(n.backoff)*n.packet.TPreambleMs)
		}
	}

	// phase1_listen -> start_nav (RTS heard)
	if n.state == Phase1Listen && n.receiveRTS {
		n.receiveRTS = false
		n.Stats.TotalListenTime += n.receiveRTSTime - n.listenStart
		n.Stats.NReceiveNavRTSP1++
		n.enterNAVFromRTS()
	}

	// phase2_backoff -> phase2_rts (send the RTS, possibly after its own busy-retry loop)
	if n.state == Phase2Backoff {
		n.state = Phase2RTS
		n.wbusyBE = n.cfg.WbusyBE
		if n.cfg.NRetryRTS > 0 {
			n.nRetryRTS = n.cfg.NRetryRTS
		}
		n.cca = false

		busy := true
		for n.nRetryRTS != 0 && busy {
			if n.cfg.CheckBusyRTS {
				var wasRTS, wasData bool
				busy, wasRTS, wasData = n.checkCCA(n.sched.Busy.RTSBusy, n.sched.Busy.DataBusy)
				if wasRTS {
					n.Stats.NBusyRTS++
				} else if wasData {
					n.Stats.NBusyData++
				}
			} else {
				busy = false
			}
			if busy {
				n.backoffWbusy()
				if n.cfg.NRetryRTS > 0 {
					n.nRetryRTS--
				}
				n.sched.Sleep(n.id, float64(n.backoff)*n.packet.TPreambleMs)
			}
		}

		n.Stats.NRTSSent++
		n.Stats.TotalRetryRTS += n.cfg.NRetryRTS - n.nRetryRTS
		n.Stats.RetryRTSBin[clampIndex(n.cfg.NRetryRTS-n.nRetryRTS, len(n.Stats.RetryRTSBin))]++
		n.sendRTS()
	}

	// phase2_rts -> phase2_listen | phase3_backoff (CA1 skips listening)
	if n.state == Phase2RTS {
		if n.cfg.CA1 {
			n.state = Phase3Backoff
			n.backoff = prng.UniformInt(0, n.cfg.W3)
			n.sched.Sleep(n.id, float64(n.backoff)*n.packet.TPreambleMs)
		} else {
			n.state = Phase2Listen
			n.listenStart = n.sched.Now()
			dur := float64(n.cfg.WL)*n.packet.TPreambleMs + n.packet.RectimeMs
			n.sched.Sleep(n.id, dur)
		}
	}

	// phase2_listen -> start_nav | phase3_backoff (no RTS heard)
	if n.state == Phase2Listen && !n.receiveRTS {
		if n.receiveData {
			n.receiveData = false
			n.Stats.TotalListenTime += n.receiveDataTime - n.listenStart
			n.Stats.NReceiveNavDataP2++
			n.enterNAVFromData()
		} else {
			n.state = Phase3Backoff
			n.backoff = prng.UniformInt(0, n.cfg.W3)
			n.sched.Sleep(n.id, float64(n.backoff)*n.packet.TPreambleMs)
		}
	}

	// phase2_listen -> start_nav (RTS heard)
	if n.state == Phase2Listen && n.receiveRTS {
		n.receiveRTS = false
		n.Stats.TotalListenTime += n.receiveRTSTime - n.listenStart
		n.Stats.NReceiveNavRTSP2++
		navPeriod := float64(n.cfg.WL)*n.packet.TPreambleMs + n.packet.RectimeMs +
			float64(n.cfg.W3)*n.packet.TPreambleMs + n.navPeriodFor(n.nav)
		n.goIntoNAV(navPeriod, n.receiveRTSTime)
	}

	// phase3_backoff -> phase3_transmit (no yield: falls straight through below)
	if n.state == Phase3Backoff {
		n.state = Phase3Transmit
		n.packet.SetType(lora.DataPacket, n.cfg.Band, n.airtime)
	}

	// phase3_transmit -> want_transmit | send DATA
	if n.state == Phase3Transmit && n.packet.Type == lora.DataPacket {
		busy := false
		if n.cfg.CheckBusy {
			var wasRTS, wasData bool
			busy, wasRTS, wasData = n.checkCCA(n.sched.Busy.RTSBusy, n.sched.Busy.DataBusy)
			if wasRTS {
				n.Stats.NBusyRTS++
			} else if wasData {
				n.Stats.NBusyData++
			}
		}
		if busy {
			n.cca = true
			n.nRetry--
			n.state = WantTransmit
		} else {
			n.sendDataCA()
			n.nRetry = n.cfg.NRetry
			n.cca = false
			n.nav = 0
			n.state = ScheduleTX
		}
	}

	// start_nav -> want_transmit
	if n.state == StartNAV {
		n.state = WantTransmit
		n.packet.SetType(lora.DataPacket, n.cfg.Band, n.airtime)
		n.nRetry--
	}
}

func (n *Node) enterNAVFromData() {
	navPeriod := n.navPeriodFor(n.nav)
	n.state = StartNAV
	extra := n.extraNavDIFS()
	navWithExtra := navPeriod + float64(extra)*n.packet.TPreambleMs
	if n.receiveDataTime+navWithExtra <= n.sched.Now() {
		return
	}
	n.goIntoNAVExtra(navWithExtra, n.receiveDataTime)
}

func (n *Node) enterNAVFromRTS() {
	navPeriod := float64(n.cfg.WL)*n.packet.TPreambleMs + n.packet.RectimeMs +
		float64(n.cfg.W3)*n.packet.TPreambleMs + n.navPeriodFor(n.nav)
	n.goIntoNAV(navPeriod, n.receiveRTSTime)
}

// goIntoNAV draws its own extra [0,Wnav] DIFS span and suspends until
// navPeriod plus that span has elapsed since since_, adjusted for time
// already spent listening before the hint was acted on.
func (n *Node) goIntoNAV(navPeriod, since float64) {
	extra := n.extraNavDIFS()
	n.goIntoNAVExtra(navPeriod+float64(extra)*n.packet.TPreambleMs, since)
}

// goIntoNAVExtra is goIntoNAV without drawing its own extra DIFS span, for
// callers (the DATA-overheard path) that already folded one into
// navPeriodWithExtra themselves — the extra span must be drawn exactly
// once, since it also gates the "NAV already covered" early-return.
func (n *Node) goIntoNAVExtra(navPeriodWithExtra, since float64) {
	adjusted := navPeriodWithExtra - (n.sched.Now() - since)
	n.state = StartNAV
	if adjusted > 0 {
		n.sched.Sleep(n.id, adjusted)
	}
}

func (n *Node) sendRTS() {
	n.deliverToGateway()
	n.sched.Busy.RTSBusy = true
	n.sched.Sleep(n.id, n.packet.RectimeMs)
	n.sched.Busy.RTSBusy = false
	n.finishRTS()
}

func (n *Node) sendDataCA() {
	n.recordDataSendStats(n.cfg.NRetry - n.nRetry)
	n.deliverToGateway()
	n.sched.Busy.DataBusy = true
	n.sched.Sleep(n.id, n.packet.RectimeMs)
	n.sched.Busy.DataBusy = false
	n.finishData()
}

// ///////////////////////////////////////////////////////////////////////
// ALOHA / ALOHA+CSMA discipline (no RTS/NAV phase at all).
// ///////////////////////////////////////////////////////////////////////

func (n *Node) turnAloha() {
	wait := n.scheduleWait()
	n.cycle++
	n.sched.Sleep(n.id, wait)

	n.wantTransmitTime = n.sched.Now()
	n.recordTransmitTiming()

	busy := true
	for n.nRetry != 0 && busy {
		if n.cfg.Discipline == AlohaCSMA || n.cfg.CheckBusy {
			var wasData bool
			busy, _, wasData = n.checkCCA(false, n.sched.Busy.DataBusy)
			if wasData {
				n.Stats.NBusyData++
			}
		} else {
			busy = false
		}
		if busy {
			n.backoffWbusy()
			n.nRetry--
			dur := float64(n.backoff) * n.packet.TPreambleMs
			if n.cfg.WbusyAddMaxToA {
				dur += n.navPeriodFor(n.cfg.MaxPayloadSize)
			}
			n.sched.Sleep(n.id, dur)
		}
	}

	if n.nRetry == 0 {
		n.Stats.NAborted++
		n.nRetry = n.cfg.NRetry
		n.wbusyBE = n.cfg.WbusyBE
		return
	}

	n.recordDataSendStats(n.cfg.NRetry - n.nRetry)
	n.deliverToGateway()
	n.sched.Busy.DataBusy = true
	n.sched.Sleep(n.id, n.packet.RectimeMs)
	n.sched.Busy.DataBusy = false
	n.finishData()
	n.nRetry = n.cfg.NRetry
	n.wbusyBE = n.cfg.WbusyBE
}

// ///////////////////////////////////////////////////////////////////////
// Shared gateway plumbing and stat bookkeeping.
// ///////////////////////////////////////////////////////////////////////

func (n *Node) recordTransmitTiming() {
	n.globals.NTransmit++
	if n.globals.NTransmit > 1 {
		delta := n.sched.Now() - n.globals.LastTransmitTime
		n.globals.InterTransmitTime += delta
		n.globals.InterTransmitBin[clampIndex(int(delta/1000), len(n.globals.InterTransmitBin))]++
	}
	n.globals.LastTransmitTime = n.sched.Now()
}

func (n *Node) recordDataSendStats(retriesUsed int) {
	n.Stats.NDataSent++
	n.Stats.TotalRetry += retriesUsed
	n.Stats.RetryBin[clampIndex(retriesUsed, len(n.Stats.RetryBin))]++
	n.Stats.Latency += n.sched.Now() - n.wantTransmitTime
}

// deliverToGateway runs the sensitivity check and gateway collision
// evaluation for the node's current packet (whichever Type it currently
// has) and enters it into the gateway's in-flight set.
func (n *Node) deliverToGateway() {
	sens, ok := airtime.Sensitivity(n.cfg.Band, n.packet.SF, n.packet.BWKHz)
	if !ok || n.packet.RSSIDBm < sens {
		n.packet.Lost = true
		return
	}
	n.packet.Lost = false
	n.packet.AddTimeMs = n.sched.Now()
	collided := n.gw.Arrive(n.packet, n.sched.Now())
	n.packet.Collided = collided
	n.gw.Enter(n.packet)
}

func (n *Node) finishRTS() {
	g := n.globals
	if n.packet.Lost {
		g.NrRTSLost++
	}
	if n.packet.Collided {
		g.NrRTSCollisions++
	}
	if !n.packet.Collided && !n.packet.Lost {
		g.NrRTSReceived++
	}
	if n.packet.Processed {
		g.NrRTSProcessed++
	}
	n.gw.Depart(n.packet)
	n.packet.Collided, n.packet.Processed, n.packet.Lost = false, false, false
}

func (n *Node) finishData() {
	g := n.globals
	if n.packet.Lost {
		g.NrLost++
	}
	if n.packet.Collided {
		g.NrCollisions++
	}
	if !n.packet.Collided && !n.packet.Lost {
		g.NrReceived++
	}
	if n.packet.Processed {
		g.NrProcessed++
	}
	n.gw.Depart(n.packet)
	n.packet.Collided, n.packet.Processed, n.packet.Lost = false, false, false
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
