// Package stats implements the statistics sink (C7): aggregation of every
// node's counters plus the simulation-wide totals into the
// "-- SETTINGS --"/"-- TOTAL --" report the reference implementation
// writes once to stdout and once, appended, to exp<N>.dat.
package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/CongducPham/lorasimmac/internal/mac"
)

// Settings is the run configuration a report's "-- SETTINGS --" block
// prints, independent of internal/config so this package has no import
// cycle risk and can be unit-tested without building a full Simulation.
type Settings struct {
	Nodes         int
	AvgSendMs     float64
	Uniform       bool
	Experiment    int
	SimtimeMs     float64
	FullCollision bool
	NRetry        int
	CheckBusy     bool
	CCAProb       int
	PacketLength  int
	TargetSent    int
	WbusyMin      int
	WbusyBE       int
	WbusyMaxBE    int
	WbusyExpBackoff bool

	CA           bool
	P, WL, W2, W3, Wnav, W2afterNAV int
	NRetryRTS    int
	CheckBusyRTS bool

	RunID string
}

// Report is a fully-computed end-of-run summary over a fixed set of
// nodes and the simulation-wide globals, ready to render either to the
// console or to an exp<N>.dat file.
type Report struct {
	Settings Settings
	EndSimMs float64

	Sent, RTSSent                 int
	NReceiveNavDataP1, NReceiveNavDataP2 int
	NReceiveNavRTSP1, NReceiveNavRTSP2   int

	NCCA, NBusyData, NBusyRTS, NBusyRTSP1 int
	Aborted                                int
	TotalListenTimeMs                      float64
	TotalTXTimeMs                          float64
	MeanLatencyMs                          float64
	MeanRetry, MeanRTSRetry                float64

	RetryBin    []int // index i: data packets (all nodes) sent after exactly i retries
	RetryRTSBin []int

	NrCollisions, NrReceived, NrLost, NrProcessed                 int
	NrRTSCollisions, NrRTSReceived, NrRTSLost, NrRTSProcessed     int

	NTransmit         int
	MeanInterTransmitMs float64
	InterTransmitBin    []int
}

// New aggregates per-node and global counters into a Report. endSimMs is
// the virtual time the run actually stopped at; cmd/lorasimmac passes the
// scheduler's clock once Run returns, i.e. the time of the last event it
// processed.
func New(settings Settings, nodes []*mac.Node, globals *mac.GlobalStats, endSimMs float64) *Report {
	r := &Report{Settings: settings, EndSimMs: endSimMs}

	retryBinLen, retryRTSBinLen := 0, 0
	for _, n := range nodes {
		r.Sent += n.Stats.NDataSent
		r.RTSSent += n.Stats.NRTSSent
		r.NReceiveNavDataP1 += n.Stats.NReceiveNavDataP1
		r.NReceiveNavDataP2 += n.Stats.NReceiveNavDataP2
		r.NReceiveNavRTSP1 += n.Stats.NReceiveNavRTSP1
		r.NReceiveNavRTSP2 += n.Stats.NReceiveNavRTSP2
		r.NCCA += n.Stats.NCCA
		r.NBusyData += n.Stats.NBusyData
		r.NBusyRTS += n.Stats.NBusyRTS
		r.NBusyRTSP1 += n.Stats.NBusyRTSP1
		r.Aborted += n.Stats.NAborted
		r.TotalListenTimeMs += n.Stats.TotalListenTime
		r.TotalTXTimeMs += n.DataRectimeMs()*float64(n.Stats.NDataSent) + n.RTSRectimeMs()*float64(n.Stats.NRTSSent)
		if n.Stats.NDataSent > 0 {
			r.MeanLatencyMs += n.Stats.Latency / float64(n.Stats.NDataSent)
			r.MeanRetry += float64(n.Stats.TotalRetry) / float64(n.Stats.NDataSent)
		}
		if n.Stats.NRTSSent > 0 {
			r.MeanRTSRetry += float64(n.Stats.TotalRetryRTS) / float64(n.Stats.NRTSSent)
		}
		if len(n.Stats.RetryBin) > retryBinLen {
			retryBinLen = len(n.Stats.RetryBin)
		}
		if len(n.Stats.RetryRTSBin) > retryRTSBinLen {
			retryRTSBinLen = len(n.Stats.RetryRTSBin)
		}
	}
	if len(nodes) > 0 {
		r.MeanLatencyMs /= float64(len(nodes))
		r.MeanRetry /= float64(len(nodes))
		r.MeanRTSRetry /= float64(len(nodes))
	}

	r.RetryBin = make([]int, retryBinLen)
	r.RetryRTSBin = make([]int, retryRTSBinLen)
	for _, n := range nodes {
		for i, v := range n.Stats.RetryBin {
			r.RetryBin[i] += v
		}
		for i, v := range n.Stats.RetryRTSBin {
			r.RetryRTSBin[i] += v
		}
	}

	r.NrCollisions, r.NrReceived, r.NrLost, r.NrProcessed = globals.NrCollisions, globals.NrReceived, globals.NrLost, globals.NrProcessed
	r.NrRTSCollisions, r.NrRTSReceived, r.NrRTSLost, r.NrRTSProcessed = globals.NrRTSCollisions, globals.NrRTSReceived, globals.NrRTSLost, globals.NrRTSProcessed
	r.NTransmit = globals.NTransmit
	if globals.NTransmit > 0 {
		r.MeanInterTransmitMs = globals.InterTransmitTime / float64(globals.NTransmit)
	}
	r.InterTransmitBin = append([]int(nil), globals.InterTransmitBin...)

	return r
}

// DER is the data extraction rate computed as (sent-collisions)/sent.
func (r *Report) DER() float64 {
	if r.Sent == 0 {
		return 0
	}
	return float64(r.Sent-r.NrCollisions) / float64(r.Sent)
}

// DERMethod2 is the data extraction rate computed as received/sent, the
// second way the reference implementation reports it.
func (r *Report) DERMethod2() float64 {
	if r.Sent == 0 {
		return 0
	}
	return float64(r.NrReceived) / float64(r.Sent)
}

// cumulativePercent renders the running percentage-of-sent distribution
// the original prints after each retry histogram: for every bin index i,
// the percentage of `total` packets needing i or fewer retries.
func cumulativePercent(bin []int, total int) string {
	if total == 0 {
		return ""
	}
	var b strings.Builder
	running := 0
	for i, v := range bin {
		running += v
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%.1f", float64(running)*100.0/float64(total))
		if running == total {
			break
		}
	}
	return b.String()
}

// WriteTo renders the full "-- SETTINGS --"/"-- TOTAL --" block, the
// format appended to exp<N>.dat and also used for the console summary.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	s := r.Settings

	fmt.Fprintln(&b, "-- SETTINGS -----------------------------------------------------------------")
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "Nodes: %d\n", s.Nodes)
	fmt.Fprintf(&b, "AvgSendTime: %g\n", s.AvgSendMs)
	dist := "expoDistribType"
	if s.Uniform {
		dist = "uniformDistribType"
	}
	fmt.Fprintf(&b, "Distribution: %s\n", dist)
	fmt.Fprintf(&b, "Experiment: %d\n", s.Experiment)
	fmt.Fprintf(&b, "Simtime: %g\n", s.SimtimeMs)
	fmt.Fprintf(&b, "Full Collision: %t\n", s.FullCollision)
	fmt.Fprintf(&b, "n_retry: %d\n", s.NRetry)
	fmt.Fprintf(&b, "check_busy: %t\n", s.CheckBusy)
	fmt.Fprintf(&b, "CCA_prob: %d\n", s.CCAProb)
	fmt.Fprintf(&b, "Packet length: %d\n", s.PacketLength)
	fmt.Fprintf(&b, "targetSentPacket: %d\n", s.TargetSent)
	fmt.Fprintf(&b, "Wbusy_min: %d\n", s.WbusyMin)
	fmt.Fprintf(&b, "Wbusy_BE: %d\n", s.WbusyBE)
	fmt.Fprintf(&b, "Wbusy_maxBE: %d\n", s.WbusyMaxBE)
	fmt.Fprintf(&b, "Wbusy_exp_backoff: %t\n", s.WbusyExpBackoff)
	fmt.Fprintf(&b, "Collision Avoidance: %t\n", s.CA)
	if s.CA {
		fmt.Fprintf(&b, "P: %d\n", s.P)
		fmt.Fprintf(&b, "WL: %d\n", s.WL)
		fmt.Fprintf(&b, "W2: %d\n", s.W2)
		fmt.Fprintf(&b, "W3: %d\n", s.W3)
		fmt.Fprintf(&b, "Wnav: %d\n", s.Wnav)
		fmt.Fprintf(&b, "W2afterNAV: %d\n", s.W2afterNAV)
		fmt.Fprintf(&b, "n_retry_rts: %d\n", s.NRetryRTS)
		fmt.Fprintf(&b, "check_busy_rts: %t\n", s.CheckBusyRTS)
	}

	fmt.Fprintln(&b, "-- TOTAL --------------------------------------------------------------------")
	fmt.Fprintf(&b, "end of simulation time %gms %gh\n", r.EndSimMs, r.EndSimMs/3600000)
	fmt.Fprintf(&b, "cumulated time (s) in TX: %g\n", r.TotalTXTimeMs/1000)
	if s.CA {
		fmt.Fprintf(&b, "cumulated time (s) in RX: %g\n", r.TotalListenTimeMs/1000)
	}
	fmt.Fprintf(&b, "number of CCA: %d\n", r.NCCA)
	fmt.Fprintf(&b, "sent data packets: %d\n", r.Sent)
	fmt.Fprintf(&b, "mean latency: %g\n", r.MeanLatencyMs)
	fmt.Fprintf(&b, "aborted packets: %d\n", r.Aborted)
	fmt.Fprintf(&b, "collisions: %d\n", r.NrCollisions)
	fmt.Fprintf(&b, "received packets: %d\n", r.NrReceived)
	fmt.Fprintf(&b, "processed packets: %d\n", r.NrProcessed)
	fmt.Fprintf(&b, "lost packets: %d\n", r.NrLost)
	fmt.Fprintf(&b, "mean retry: %g\n", r.MeanRetry)
	fmt.Fprintf(&b, "retry distribution: %v\n", r.RetryBin)
	fmt.Fprintf(&b, "retry cumulative %%: %s\n", cumulativePercent(r.RetryBin, r.Sent))
	fmt.Fprintf(&b, "channel busy DATA: %d\n", r.NBusyData)
	if s.CA {
		fmt.Fprintf(&b, "channel busy RTS: %d\n", r.NBusyRTS)
		fmt.Fprintf(&b, "channel busy RTS (P1): %d\n", r.NBusyRTSP1)
		fmt.Fprintf(&b, "sent rts packets: %d\n", r.RTSSent)
		fmt.Fprintf(&b, "RTS collisions: %d\n", r.NrRTSCollisions)
		fmt.Fprintf(&b, "RTS received packets: %d\n", r.NrRTSReceived)
		fmt.Fprintf(&b, "RTS processed packets: %d\n", r.NrRTSProcessed)
		fmt.Fprintf(&b, "RTS lost packets: %d\n", r.NrRTSLost)
		fmt.Fprintf(&b, "NAV from RTS P1: %d\n", r.NReceiveNavRTSP1)
		fmt.Fprintf(&b, "NAV from RTS P2: %d\n", r.NReceiveNavRTSP2)
		fmt.Fprintf(&b, "NAV from RTS ++: %d\n", r.NReceiveNavRTSP1+r.NReceiveNavRTSP2)
		fmt.Fprintf(&b, "NAV from DATA P1: %d\n", r.NReceiveNavDataP1)
		fmt.Fprintf(&b, "NAV from DATA P2: %d\n", r.NReceiveNavDataP2)
		fmt.Fprintf(&b, "NAV from DATA ++: %d\n", r.NReceiveNavDataP1+r.NReceiveNavDataP2)
		fmt.Fprintf(&b, "mean RTS retry: %g\n", r.MeanRTSRetry)
		fmt.Fprintf(&b, "RTS retry distribution: %v\n", r.RetryRTSBin)
		fmt.Fprintf(&b, "RTS retry cumulative %%: %s\n", cumulativePercent(r.RetryRTSBin, r.RTSSent))
	}
	if r.Sent > 0 {
		fmt.Fprintf(&b, "DER: %g\n", r.DER())
		fmt.Fprintf(&b, "DER method 2: %g\n", r.DERMethod2())
	}
	fmt.Fprintf(&b, "n_transmit: %d\n", r.NTransmit)
	fmt.Fprintf(&b, "mean inter-transmit time (ms): %g\n", r.MeanInterTransmitMs)
	fmt.Fprintf(&b, "inter-transmit time distribution [<1s, <2s, <3s, ...]: %v\n", r.InterTransmitBin)
	fmt.Fprintln(&b, "-- END ----------------------------------------------------------------------")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// String renders the same report as WriteTo, for console/log use.
func (r *Report) String() string {
	var b strings.Builder
	_, _ = r.WriteTo(&b)
	return b.String()
}
