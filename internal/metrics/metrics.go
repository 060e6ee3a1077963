// Package metrics is the opt-in Prometheus exporter (A8): a handful of
// counters and gauges updated once at the end of a run (this simulator is
// a batch job, not a long-lived service, so there is no periodic scrape
// target beyond "serve the final numbers until the process exits").
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every gauge/counter this exporter publishes, labeled by
// run so multiple completed runs can coexist behind one listener if the
// caller chooses to register more than one.
type Collector struct {
	PacketsSent      prometheus.Counter
	PacketsCollided  prometheus.Counter
	PacketsReceived  prometheus.Counter
	DeliveryRatio    prometheus.Gauge
	NetworkEnergyJ   prometheus.Gauge
}

// New builds a Collector labeled with the given run identifier and
// registers it against prometheus's default registry.
func New(runID string) *Collector {
	labels := prometheus.Labels{"run_id": runID}
	c := &Collector{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lorasimmac_packets_sent_total",
			Help:        "Total data packets sent across the run.",
			ConstLabels: labels,
		}),
		PacketsCollided: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lorasimmac_packets_collided_total",
			Help:        "Total data packets lost to collisions.",
			ConstLabels: labels,
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "lorasimmac_packets_received_total",
			Help:        "Total data packets received cleanly at the gateway.",
			ConstLabels: labels,
		}),
		DeliveryRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "lorasimmac_delivery_ratio",
			Help:        "Data extraction rate for the run (received/sent).",
			ConstLabels: labels,
		}),
		NetworkEnergyJ: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "lorasimmac_network_energy_joules",
			Help:        "Total network energy consumption, in joules.",
			ConstLabels: labels,
		}),
	}
	prometheus.MustRegister(c.PacketsSent, c.PacketsCollided, c.PacketsReceived, c.DeliveryRatio, c.NetworkEnergyJ)
	return c
}

// PublishFinal sets every metric from a finished run's totals.
func (c *Collector) PublishFinal(sent, collided, received int, der, networkEnergyJ float64) {
	c.PacketsSent.Add(float64(sent))
	c.PacketsCollided.Add(float64(collided))
	c.PacketsReceived.Add(float64(received))
	c.DeliveryRatio.Set(der)
	c.NetworkEnergyJ.Set(networkEnergyJ)
}

// Serve blocks forever serving /metrics on addr. The caller runs it in its
// own goroutine and lets process exit (or a context cancellation upstream)
// end it.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
