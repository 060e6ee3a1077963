package energy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CongducPham/lorasimmac/internal/airtime"
	"github.com/CongducPham/lorasimmac/internal/energy"
	"github.com/CongducPham/lorasimmac/internal/gateway"
	"github.com/CongducPham/lorasimmac/internal/lora"
	"github.com/CongducPham/lorasimmac/internal/mac"
	"github.com/CongducPham/lorasimmac/internal/prng"
	"github.com/CongducPham/lorasimmac/internal/sim"
)

func runSingleNode(t *testing.T, ca bool, seed int64) *mac.Node {
	t.Helper()
	prng.Seed(seed)

	discipline := mac.Aloha
	if ca {
		discipline = mac.CollisionAvoidance
	}
	cfg := &mac.Config{
		Discipline: discipline, Band: lora.BandSubGHz,
		NRetry: 40, NRetryRTS: 20, MaxPayloadSize: 120, FullCollision: true,
		CCAProb: 50, WbusyMin: 1, WbusyBE: 3, WbusyMaxBE: 6, WbusyExpBackoff: true,
		WL: 3, W2: 3, W3: 3, Wnav: 3, W2afterNAV: 3, P: 50,
		CheckBusy: true, CheckBusyRTS: true,
	}
	gw := gateway.New(8, true, ca, 120)
	sched := sim.NewScheduler(60000)
	globals := mac.NewGlobalStats(600)

	pkt := &lora.Packet{NodeID: 1, SF: 9, CR: 1, BWKHz: 125, FreqHz: 868100000,
		DataLen: 20, TxPowerDBm: 14, RSSIDBm: -80}
	pkt.SymTimeMs = float64(int(1)<<uint(pkt.SF)) / pkt.BWKHz
	pkt.TPreambleMs = airtime.Preamble(lora.BandSubGHz, pkt.SF, pkt.BWKHz)
	pkt.SetType(lora.DataPacket, lora.BandSubGHz, airtime.Compute)

	n := mac.NewNode(1, cfg, gw, sched, airtime.Compute, globals, pkt, 2000, false)
	sched.Register(1)
	sched.Start(1, n.Run)
	sched.Run()
	return n
}

func TestComputeNodeNonZeroAfterTransmissions(t *testing.T) {
	n := runSingleNode(t, false, 21)
	e := energy.ComputeNode(n, lora.BandSubGHz, false)

	require.Greater(t, n.Stats.NDataSent, 0)
	assert.Greater(t, e.TXEnergyJ, 0.0)
	assert.Greater(t, e.CADEnergyJ, 0.0)
	assert.Equal(t, 0.0, e.ListenEnergyJ, "no listening energy without collision avoidance")
	assert.InDelta(t, e.CADEnergyJ+e.TXEnergyJ, e.TotalEnergyJ, 1e-12)
}

func TestComputeNodeListenEnergyOnlyWithCA(t *testing.T) {
	n := runSingleNode(t, true, 22)
	e := energy.ComputeNode(n, lora.BandSubGHz, true)

	assert.GreaterOrEqual(t, e.ListenEnergyJ, 0.0)
	assert.InDelta(t, e.CADEnergyJ+e.TXEnergyJ+e.ListenEnergyJ, e.TotalEnergyJ, 1e-12)
}

func TestComputeNetworkReportSumsNodes(t *testing.T) {
	n1 := runSingleNode(t, false, 23)
	n2 := runSingleNode(t, false, 24)

	r := energy.Compute([]*mac.Node{n1, n2}, lora.BandSubGHz, false)
	require.Len(t, r.Nodes, 2)

	want := r.Nodes[0].TotalEnergyJ + r.Nodes[1].TotalEnergyJ
	assert.InDelta(t, want, r.TotalEnergyJ, 1e-9)
}

func TestReportWriteToRendersPerNodeAndNetworkSections(t *testing.T) {
	n := runSingleNode(t, false, 25)
	r := energy.Compute([]*mac.Node{n}, lora.BandSubGHz, false)

	out := r.String()
	assert.True(t, strings.Contains(out, "-- node 1 energy"))
	assert.True(t, strings.Contains(out, "-- network energy"))
	assert.True(t, strings.Contains(out, "total energy (in J):"))
}
