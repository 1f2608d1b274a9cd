package relay

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	connections prometheus.Gauge
	events      *prometheus.CounterVec
	rejected    prometheus.Counter
	dropped     prometheus.Counter
}

// NewMetrics registers the relay collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections",
			Help: "Number of open relay connections.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Envelopes accepted for broadcast, by kind.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_rejected_total",
			Help: "Inbound frames that failed validation.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_dropped_connections_total",
			Help: "Connections closed because their send buffer was full.",
		}),
	}
	reg.MustRegister(m.connections, m.events, m.rejected, m.dropped)
	return m
}
