package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/CongducPham/lorasimmac/internal/metrics"
)

func TestPublishFinalSetsEveryMetric(t *testing.T) {
	c := metrics.New("test-run-publish")
	c.PublishFinal(100, 12, 85, 0.85, 1.23)

	assert.InDelta(t, 100, testutil.ToFloat64(c.PacketsSent), 1e-9)
	assert.InDelta(t, 12, testutil.ToFloat64(c.PacketsCollided), 1e-9)
	assert.InDelta(t, 85, testutil.ToFloat64(c.PacketsReceived), 1e-9)
	assert.InDelta(t, 0.85, testutil.ToFloat64(c.DeliveryRatio), 1e-9)
	assert.InDelta(t, 1.23, testutil.ToFloat64(c.NetworkEnergyJ), 1e-9)
}
