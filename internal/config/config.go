// Package config implements C8: positional CLI-argument parsing, the
// experiment radio-settings presets (0-7), node/gateway placement, and the
// Bootstrap wiring that turns parsed arguments into a ready-to-run
// simulation (nodes, gateway, scheduler, global stats).
package config

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/CongducPham/lorasimmac/internal/airtime"
	"github.com/CongducPham/lorasimmac/internal/gateway"
	"github.com/CongducPham/lorasimmac/internal/lora"
	"github.com/CongducPham/lorasimmac/internal/mac"
	"github.com/CongducPham/lorasimmac/internal/prng"
	"github.com/CongducPham/lorasimmac/internal/progctx"
	"github.com/CongducPham/lorasimmac/internal/sim"
)

// Defaults, ported from the reference MAC's module-level parameters.
const (
	DefaultPacketLength  = 104
	DefaultMaxPayload    = 120
	DefaultMaxBSReceives = 8
	DefaultNRetry        = 40
	DefaultNRetryRTS     = 20
	DefaultTargetSent    = 2000
	DefaultCCAProb       = 50
	DefaultWbusyMin      = 1
	DefaultWbusyBE       = 3
	DefaultWbusyMaxBE    = 6
	DefaultExp4SF        = 12

	gamma  = 2.08
	d0     = 40.0
	lpld0  = 127.41
	gl     = 0.0
	ptxSub = 14.0

	minPlaceDistance  = 10.0
	maxPlaceAttempts  = 100
)

// Args is the parsed positional CLI vector, matching spec.md §6 exactly:
//
//	<ca> <nodes> <avgsend> <experiment> <simtime> [collision] [WL] [W2] [W3] [Wnav] [W2afterNAV] [P]
type Args struct {
	CA         bool
	Nodes      int
	AvgSendMs  float64
	Experiment int
	SimtimeMs  float64

	FullCollision bool // argv[6], optional, defaults true

	// Only meaningful (and only accepted from argv) when CA is true.
	WL, W2, W3, Wnav, W2afterNAV int
	P                            int

	Seed int64
}

// ParseArgs parses the positional LoRa CLI vector (flag.Args() in
// cmd/lorasimmac). It does not accept or know about named flags.
func ParseArgs(argv []string) (*Args, error) {
	if len(argv) < 5 {
		return nil, errors.Errorf("expected at least 5 positional arguments (ca nodes avgsend experiment simtime), got %d", len(argv))
	}

	a := &Args{
		FullCollision: true,
		WL:            7, W2: 10, W3: 7, Wnav: 0, W2afterNAV: 10, P: 0,
	}

	var caInt int
	if _, err := fmt.Sscanf(argv[0], "%d", &caInt); err != nil {
		return nil, errors.Wrap(err, "parsing ca")
	}
	a.CA = caInt != 0

	if _, err := fmt.Sscanf(argv[1], "%d", &a.Nodes); err != nil {
		return nil, errors.Wrap(err, "parsing nodes")
	}
	if a.Nodes <= 0 {
		return nil, errors.New("nodes must be positive")
	}

	if _, err := fmt.Sscanf(argv[2], "%f", &a.AvgSendMs); err != nil {
		return nil, errors.Wrap(err, "parsing avgsend")
	}

	if _, err := fmt.Sscanf(argv[3], "%d", &a.Experiment); err != nil {
		return nil, errors.Wrap(err, "parsing experiment")
	}
	if a.Experiment < 0 || a.Experiment > 7 {
		return nil, errors.Errorf("experiment must be in [0,7], got %d", a.Experiment)
	}

	if _, err := fmt.Sscanf(argv[4], "%f", &a.SimtimeMs); err != nil {
		return nil, errors.Wrap(err, "parsing simtime")
	}

	rest := argv[5:]
	if len(rest) > 0 {
		var v int
		if _, err := fmt.Sscanf(rest[0], "%d", &v); err != nil {
			return nil, errors.Wrap(err, "parsing collision")
		}
		a.FullCollision = v != 0
		rest = rest[1:]
	}

	if a.CA {
		fields := []*int{&a.WL, &a.W2, &a.W3, &a.Wnav, &a.W2afterNAV, &a.P}
		for i, f := range fields {
			if i >= len(rest) {
				break
			}
			if _, err := fmt.Sscanf(rest[i], "%d", f); err != nil {
				return nil, errors.Wrapf(err, "parsing CA override #%d", i)
			}
		}
	}

	if a.Experiment == 6 {
		a.Nodes = 9
	} else if a.Experiment == 7 {
		a.Nodes = 5
	}

	return a, nil
}

// RadioPreset is the outcome of applying an experiment's radio-settings
// preset to one node's distance from the gateway.
type RadioPreset struct {
	SF, CR int
	BWKHz  float64
	TxPowerDBm float64
	FreqHz float64
}

// applyExperiment mirrors myPacket.__init__'s experiment-preset block,
// including the experiment 3/5 best-setting search and experiment 5's
// transmit-power reduction. distance is the node's distance to the
// gateway; experiment 1's frequency choice is drawn from prng the same
// way the source's random.choice is.
func applyExperiment(band lora.Band, experiment int, distance float64, payloadLen int) (RadioPreset, error) {
	p := RadioPreset{TxPowerDBm: ptxSub}

	switch experiment {
	case 0, 1:
		p.SF, p.CR, p.BWKHz = 12, 4, 125
	case 2:
		p.SF, p.CR, p.BWKHz = 6, 1, 500
	case 4, 6, 7:
		p.SF, p.CR, p.BWKHz = DefaultExp4SF, 1, 125
	case 3, 5:
		lpl := lpld0 + 10*gamma*math.Log10(distance/d0)
		prx := p.TxPowerDBm - gl - lpl
		sf, bw, _, sens, ok := airtime.BestSetting(band, prx, payloadLen)
		if !ok {
			return p, errors.New("does not reach base station")
		}
		p.SF, p.CR, p.BWKHz = sf, 1, bw
		if experiment == 5 {
			p.TxPowerDBm = math.Max(2, p.TxPowerDBm-math.Floor(prx-sens))
		}
	default:
		return p, errors.Errorf("unsupported experiment %d", experiment)
	}

	if experiment == 1 {
		choices := []float64{860000000, 864000000, 868000000}
		p.FreqHz = choices[prng.UniformInt(0, len(choices)-1)]
	} else {
		p.FreqHz = 860000000
	}
	return p, nil
}

// minSensitivityForExperiment picks the gateway sensitivity floor used to
// size the node placement radius (maxDist), per experiment.
func minSensitivityForExperiment(band lora.Band, experiment int) float64 {
	switch experiment {
	case 3, 5:
		return airtime.MinSensitivity(band)
	case 2:
		sens, _ := airtime.Sensitivity(band, 6, 500)
		return sens
	default: // 0,1,4,6,7
		sens, _ := airtime.Sensitivity(band, DefaultExp4SF, 125)
		return sens
	}
}

// Placement is one node's fixed 2D position relative to the gateway.
type Placement struct {
	X, Y, DistanceToGateway float64
}

// placeNodes reproduces the "very complex procedure for placing nodes" loop:
// up to 100 attempts per node, rejecting any draw closer than 10 units to
// an already-placed node; the first node is always accepted immediately.
func placeNodes(n int, maxDist, bsx, bsy float64) ([]Placement, error) {
	placements := make([]Placement, 0, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			x, y := drawPosition(maxDist, bsx, bsy)
			placements = append(placements, Placement{X: x, Y: y, DistanceToGateway: dist(x, y, bsx, bsy)})
			continue
		}
		placed := false
		for attempt := 0; attempt < maxPlaceAttempts; attempt++ {
			x, y := drawPosition(maxDist, bsx, bsy)
			ok := true
			for _, p := range placements {
				if dist(x, y, p.X, p.Y) < minPlaceDistance {
					ok = false
					break
				}
			}
			if ok {
				placements = append(placements, Placement{X: x, Y: y, DistanceToGateway: dist(x, y, bsx, bsy)})
				placed = true
				break
			}
		}
		if !placed {
			return nil, errors.Errorf("could not place node %d after %d attempts", i, maxPlaceAttempts)
		}
	}
	return placements, nil
}

func drawPosition(maxDist, bsx, bsy float64) (x, y float64) {
	a := prng.Float01()
	b := prng.Float01()
	if b < a {
		a, b = b, a
	}
	x = b*maxDist*math.Cos(2*math.Pi*a/b) + bsx
	y = b*maxDist*math.Sin(2*math.Pi*a/b) + bsy
	return
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt((x1-x2)*(x1-x2) + (y1-y2)*(y1-y2))
}

// Simulation bundles everything Bootstrap built, ready for the scheduler
// to drive to completion.
type Simulation struct {
	Nodes     []*mac.Node
	Gateway   *gateway.Gateway
	Scheduler *sim.Scheduler
	Globals   *mac.GlobalStats
}

// Bootstrap builds a fully-wired Simulation from parsed Args: applies the
// experiment preset and node placement to build each node's Packet,
// constructs the Gateway/Scheduler/GlobalStats, and starts every node's
// goroutine. Call Scheduler.Run() on the result to actually drive it. ctx
// may be nil; if given, every node goroutine is registered on its
// waitgroup so ctx.Wait() blocks until the run has fully wound down.
func Bootstrap(a *Args, ctx *progctx.ProgCtx) (*Simulation, error) {
	prng.Seed(a.Seed)
	band := lora.BandSubGHz

	minSens := minSensitivityForExperiment(band, a.Experiment)
	lpl := ptxSub - minSens
	maxDist := d0 * math.Exp((lpl-lpld0)/(10.0*gamma))
	bsx := maxDist + 10
	bsy := maxDist + 10

	placements, err := placeNodes(a.Nodes, maxDist, bsx, bsy)
	if err != nil {
		return nil, errors.Wrap(err, "node placement")
	}

	targetSentPacket := DefaultTargetSent * a.Nodes

	gw := gateway.New(DefaultMaxBSReceives, a.FullCollision, a.CA, DefaultMaxPayload)
	sched := sim.NewScheduler(a.SimtimeMs)
	sched.BindContext(ctx)
	globals := mac.NewGlobalStats(600)

	disc := mac.Aloha
	if a.CA {
		disc = mac.CollisionAvoidance
	}

	cfg := &mac.Config{
		Discipline:       disc,
		Band:             band,
		Experiment:       a.Experiment,
		WL:               a.WL, W3: a.W3, Wnav: a.Wnav,
		W2:               a.W2, W2afterNAV: a.W2afterNAV, P: a.P,
		CheckBusy:        true,
		CheckBusyRTS:     true,
		CCAProb:          DefaultCCAProb,
		WbusyMin:         DefaultWbusyMin,
		WbusyBE:          DefaultWbusyBE,
		WbusyMaxBE:       DefaultWbusyMaxBE,
		WbusyExpBackoff:  true,
		NRetry:           DefaultNRetry,
		NRetryRTS:        DefaultNRetryRTS,
		MaxPayloadSize:   DefaultMaxPayload,
		FullCollision:    a.FullCollision,
		TargetSentPacket: targetSentPacket,
	}

	nodes := make([]*mac.Node, 0, a.Nodes)
	listeners := make([]gateway.Listener, 0, a.Nodes)
	for i := 0; i < a.Nodes; i++ {
		preset, err := applyExperiment(band, a.Experiment, placements[i].DistanceToGateway, DefaultPacketLength)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d radio settings", i)
		}

		pkt := &lora.Packet{
			NodeID:     i,
			SF:         preset.SF,
			CR:         preset.CR,
			BWKHz:      preset.BWKHz,
			FreqHz:     preset.FreqHz,
			TxPowerDBm: preset.TxPowerDBm,
			RSSIDBm:    preset.TxPowerDBm - gl - (lpld0 + 10*gamma*math.Log10(placements[i].DistanceToGateway/d0)),
			DataLen:    DefaultPacketLength,
		}
		pkt.SymTimeMs = math.Pow(2, float64(pkt.SF)) / pkt.BWKHz
		pkt.TPreambleMs = airtime.Preamble(band, pkt.SF, pkt.BWKHz)
		pkt.SetType(lora.DataPacket, band, airtime.Compute)

		n := mac.NewNode(i, cfg, gw, sched, airtime.Compute, globals, pkt, a.AvgSendMs, true)
		nodes = append(nodes, n)
		listeners = append(listeners, n)
	}
	gw.SetListeners(listeners)

	for _, n := range nodes {
		sched.Register(n.ID())
	}
	for _, n := range nodes {
		sched.Start(n.ID(), n.Run)
	}

	return &Simulation{Nodes: nodes, Gateway: gw, Scheduler: sched, Globals: globals}, nil
}
