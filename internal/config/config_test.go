package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CongducPham/lorasimmac/internal/config"
)

func TestParseArgsMinimalAloha(t *testing.T) {
	a, err := config.ParseArgs([]string{"0", "1", "20000", "4", "6000000", "1"})
	require.NoError(t, err)
	assert.False(t, a.CA)
	assert.Equal(t, 1, a.Nodes)
	assert.Equal(t, 20000.0, a.AvgSendMs)
	assert.Equal(t, 4, a.Experiment)
	assert.Equal(t, 6000000.0, a.SimtimeMs)
	assert.True(t, a.FullCollision)
}

func TestParseArgsCAOverrides(t *testing.T) {
	a, err := config.ParseArgs([]string{"1", "1", "20000", "4", "6000000", "1", "7", "10", "7", "0", "7"})
	require.NoError(t, err)
	assert.True(t, a.CA)
	assert.Equal(t, 7, a.WL)
	assert.Equal(t, 10, a.W2)
	assert.Equal(t, 7, a.W3)
	assert.Equal(t, 0, a.Wnav)
	assert.Equal(t, 7, a.W2afterNAV)
}

func TestParseArgsExperiment6And7ForceNodeCount(t *testing.T) {
	a, err := config.ParseArgs([]string{"0", "20", "20000", "6", "600000000"})
	require.NoError(t, err)
	assert.Equal(t, 9, a.Nodes)

	a, err = config.ParseArgs([]string{"0", "20", "20000", "7", "600000000"})
	require.NoError(t, err)
	assert.Equal(t, 5, a.Nodes)
}

func TestParseArgsRejectsTooFewArgs(t *testing.T) {
	_, err := config.ParseArgs([]string{"0", "1", "20000"})
	require.Error(t, err)
}

func TestParseArgsRejectsBadExperiment(t *testing.T) {
	_, err := config.ParseArgs([]string{"0", "1", "20000", "9", "6000000"})
	require.Error(t, err)
}

func TestBootstrapSingleNodeAloha(t *testing.T) {
	a, err := config.ParseArgs([]string{"0", "1", "20000", "4", "6000000", "1"})
	require.NoError(t, err)
	a.Seed = 42

	sim, err := config.Bootstrap(a, nil)
	require.NoError(t, err)
	require.Len(t, sim.Nodes, 1)

	sim.Scheduler.Run()

	assert.Greater(t, sim.Nodes[0].Stats.NDataSent, 0)
	assert.Equal(t, 0, sim.Globals.NrCollisions, "a single node can never collide with itself")
}

func TestBootstrapCanonicalBenchmarkRuns(t *testing.T) {
	a, err := config.ParseArgs([]string{"1", "20", "20000", "4", "600000000", "1", "7", "10", "7", "0", "7"})
	require.NoError(t, err)
	a.Seed = 7

	sim, err := config.Bootstrap(a, nil)
	require.NoError(t, err)
	require.Len(t, sim.Nodes, 20)

	sim.Scheduler.Run()

	sent := 0
	for _, n := range sim.Nodes {
		sent += n.Stats.NDataSent
	}
	assert.Greater(t, sent, 0)
}
