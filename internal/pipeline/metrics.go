package pipeline

import "github.com/prometheus/client_golang/prometheus"

// slotCollectors bundles the Prometheus instruments one endpoint set
// exports, mirroring SlotMetrics' fields so CLI collaborators can serve
// a /metrics endpoint with labelled counters/gauges instead of polling
// Metrics().
type slotCollectors struct {
	packetsSent     prometheus.Counter
	packetsReceived prometheus.Counter
	activeSessions  prometheus.Gauge
}

func newSlotCollectors(role, slot string) *slotCollectors {
	labels := prometheus.Labels{"role": role, "slot": slot}
	return &slotCollectors{
		packetsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "roc",
			Subsystem:   "pipeline",
			Name:        "packets_sent_total",
			Help:        "Packets written to the network by this endpoint set.",
			ConstLabels: labels,
		}),
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "roc",
			Subsystem:   "pipeline",
			Name:        "packets_received_total",
			Help:        "Packets read from the network by this endpoint set.",
			ConstLabels: labels,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "roc",
			Subsystem:   "pipeline",
			Name:        "active_sessions",
			Help:        "Sessions currently tracked by this endpoint set's router.",
			ConstLabels: labels,
		}),
	}
}

// Register adds the endpoint set's collectors to reg. Safe to call with
// a nil reg, in which case it is a no-op (CLI collaborators that do not
// expose a /metrics endpoint need not register anything).
func (c *slotCollectors) Register(reg *prometheus.Registry) {
	if reg == nil || c == nil {
		return
	}
	reg.MustRegister(c.packetsSent, c.packetsReceived, c.activeSessions)
}
