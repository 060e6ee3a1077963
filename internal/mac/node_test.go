package mac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CongducPham/lorasimmac/internal/airtime"
	"github.com/CongducPham/lorasimmac/internal/gateway"
	"github.com/CongducPham/lorasimmac/internal/lora"
	"github.com/CongducPham/lorasimmac/internal/mac"
	"github.com/CongducPham/lorasimmac/internal/prng"
	"github.com/CongducPham/lorasimmac/internal/sim"
)

var _ gateway.Listener = (*mac.Node)(nil)

func newTestPacket(nodeID int) *lora.Packet {
	p := &lora.Packet{
		NodeID: nodeID,
		SF:     7, CR: 1, BWKHz: 125, FreqHz: 868100000,
		DataLen: 20, TxPowerDBm: 14, RSSIDBm: -80,
	}
	p.TPreambleMs = airtime.Preamble(lora.BandSubGHz, p.SF, p.BWKHz)
	p.SetType(lora.DataPacket, lora.BandSubGHz, airtime.Compute)
	return p
}

func baseConfig(disc mac.Discipline) *mac.Config {
	return &mac.Config{
		Discipline: disc,
		Band:       lora.BandSubGHz,
		WL:         7, W2: 10, W3: 7, Wnav: 0, W2afterNAV: 10, P: 0,
		CheckBusy: true, CheckBusyRTS: true, CCAProb: 50,
		WbusyMin: 1, WbusyBE: 3, WbusyMaxBE: 6, WbusyExpBackoff: true,
		NRetry: 40, NRetryRTS: 20, MaxPayloadSize: 120,
		FullCollision: true,
	}
}

func TestAlohaSingleNodeDeliversWithinHorizon(t *testing.T) {
	prng.Seed(1)
	cfg := baseConfig(mac.Aloha)
	cfg.CheckBusy = false // pure ALOHA: no carrier sense at all

	gw := gateway.New(8, cfg.FullCollision, false, cfg.MaxPayloadSize)
	sched := sim.NewScheduler(60000)
	globals := mac.NewGlobalStats(600)

	n := mac.NewNode(1, cfg, gw, sched, airtime.Compute, globals, newTestPacket(1), 2000, false)
	sched.Register(1)
	sched.Start(1, n.Run)
	sched.Run()

	assert.Greater(t, n.Stats.NDataSent, 0)
	assert.Greater(t, globals.NrReceived, 0)
}

func TestAlohaCSMABackoffUnderContention(t *testing.T) {
	prng.Seed(2)
	cfg := baseConfig(mac.AlohaCSMA)

	gw := gateway.New(8, cfg.FullCollision, false, cfg.MaxPayloadSize)
	sched := sim.NewScheduler(120000)
	globals := mac.NewGlobalStats(600)

	n1 := mac.NewNode(1, cfg, gw, sched, airtime.Compute, globals, newTestPacket(1), 500, false)
	n2 := mac.NewNode(2, cfg, gw, sched, airtime.Compute, globals, newTestPacket(2), 500, false)
	sched.Register(1)
	sched.Register(2)
	sched.Start(1, n1.Run)
	sched.Start(2, n2.Run)
	sched.Run()

	// two nodes hammering the same channel every 500ms must send something,
	// and with contention this tight, at least one CCA must have fired.
	assert.Greater(t, n1.Stats.NDataSent+n2.Stats.NDataSent, 0)
	assert.Greater(t, n1.Stats.NCCA+n2.Stats.NCCA, 0)
}

func TestCollisionAvoidanceSingleNodeCompletesFullCycle(t *testing.T) {
	prng.Seed(3)
	cfg := baseConfig(mac.CollisionAvoidance)

	gw := gateway.New(8, cfg.FullCollision, true, cfg.MaxPayloadSize)
	sched := sim.NewScheduler(60000)
	globals := mac.NewGlobalStats(600)

	n := mac.NewNode(1, cfg, gw, sched, airtime.Compute, globals, newTestPacket(1), 2000, false)
	gw.SetListeners([]gateway.Listener{n})
	sched.Register(1)
	sched.Start(1, n.Run)
	sched.Run()

	require.Greater(t, n.Stats.NRTSSent, 0, "a lone node must still send its RTS before DATA")
	assert.Greater(t, n.Stats.NDataSent, 0)
	assert.Greater(t, globals.NrReceived, 0)
	assert.Equal(t, 0, globals.NrCollisions, "a single node can never collide with itself")
}

func TestCollisionAvoidanceWithNAVJitterCompletesBothNodes(t *testing.T) {
	// Wnav > 0 exercises the extra-[0,Wnav]-DIFS draw on the DATA-overheard
	// NAV path (enterNAVFromData), which must draw exactly once rather than
	// once in enterNAVFromData and again in goIntoNAV.
	prng.Seed(5)
	cfg := baseConfig(mac.CollisionAvoidance)
	cfg.Wnav = 5

	gw := gateway.New(8, cfg.FullCollision, true, cfg.MaxPayloadSize)
	sched := sim.NewScheduler(60000)
	globals := mac.NewGlobalStats(600)

	n1 := mac.NewNode(1, cfg, gw, sched, airtime.Compute, globals, newTestPacket(1), 1500, false)
	n2 := mac.NewNode(2, cfg, gw, sched, airtime.Compute, globals, newTestPacket(2), 1500, false)
	gw.SetListeners([]gateway.Listener{n1, n2})
	sched.Register(1)
	sched.Register(2)
	sched.Start(1, n1.Run)
	sched.Start(2, n2.Run)
	sched.Run()

	assert.Greater(t, n1.Stats.NDataSent, 0)
	assert.Greater(t, n2.Stats.NDataSent, 0)
}

func TestTargetSentPacketStopsOnlyTrippingNode(t *testing.T) {
	prng.Seed(4)
	cfg := baseConfig(mac.Aloha)
	cfg.CheckBusy = false
	cfg.TargetSentPacket = 2

	gw := gateway.New(8, cfg.FullCollision, false, cfg.MaxPayloadSize)
	sched := sim.NewScheduler(10 * 60 * 1000)
	globals := mac.NewGlobalStats(600)

	n1 := mac.NewNode(1, cfg, gw, sched, airtime.Compute, globals, newTestPacket(1), 1000, false)
	n2 := mac.NewNode(2, cfg, gw, sched, airtime.Compute, globals, newTestPacket(2), 1000, false)
	sched.Register(1)
	sched.Register(2)
	sched.Start(1, n1.Run)
	sched.Start(2, n2.Run)
	sched.Run()

	assert.Greater(t, globals.NrProcessed, cfg.TargetSentPacket)
}
