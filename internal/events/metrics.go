package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts events lost to a full buffer and events replayed to the bus
// after it recovered.
type Metrics struct {
	Dropped  prometheus.Counter
	Replayed prometheus.Counter
}

// NewMetrics registers the event bus metrics on reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_events_dropped_total",
			Help: "Events discarded because the in-memory buffer was full",
		}),
		Replayed: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_events_replayed_total",
			Help: "Buffered events delivered to the bus after it recovered",
		}),
	}
}
