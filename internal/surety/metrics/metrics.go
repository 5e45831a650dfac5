package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds the ledger's Prometheus metrics.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	FlightsResolved    *prometheus.CounterVec
	AirlinesRegistered prometheus.Gauge
	AirlinesFunded     prometheus.Gauge
	FlightsRegistered  prometheus.Gauge
	OraclesRegistered  prometheus.Gauge
	PremiumsCollected  prometheus.Counter
	PayoutsCredited    prometheus.Counter
	Withdrawn          prometheus.Counter
	PublishFailures    prometheus.Counter
	JournalFailures    prometheus.Counter
}

// New registers the ledger metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_ledger_transitions_total",
			Help: "Ledger transitions by operation and result code (ok when accepted)",
		}, []string{"op", "result"}),
		FlightsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_ledger_flights_resolved_total",
			Help: "Flights resolved by oracle consensus, by status",
		}, []string{"status"}),
		AirlinesRegistered: f.NewGauge(prometheus.GaugeOpts{
			Name: "flightsurety_ledger_airlines_registered",
			Help: "Registered airlines",
		}),
		AirlinesFunded: f.NewGauge(prometheus.GaugeOpts{
			Name: "flightsurety_ledger_airlines_funded",
			Help: "Registered and funded airlines",
		}),
		FlightsRegistered: f.NewGauge(prometheus.GaugeOpts{
			Name: "flightsurety_ledger_flights_registered",
			Help: "Registered flights",
		}),
		OraclesRegistered: f.NewGauge(prometheus.GaugeOpts{
			Name: "flightsurety_ledger_oracles_registered",
			Help: "Registered oracles",
		}),
		PremiumsCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_ledger_premiums_collected_total",
			Help: "Sum of insurance premiums paid",
		}),
		PayoutsCredited: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_ledger_payouts_credited_total",
			Help: "Sum of payouts credited to passengers",
		}),
		Withdrawn: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_ledger_withdrawn_total",
			Help: "Sum of balances paid out to passengers",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_ledger_event_publish_failures_total",
			Help: "Events that could not be published after a committed transition",
		}),
		JournalFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_ledger_journal_failures_total",
			Help: "Transitions refused because the journal append failed",
		}),
	}
}

func (m *Metrics) ObserveTransition(op, result string) {
	m.Transitions.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveResolution(status string) {
	m.FlightsResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) SetCounts(airlines, funded, flights, oracles int) {
	m.AirlinesRegistered.Set(float64(airlines))
	m.AirlinesFunded.Set(float64(funded))
	m.FlightsRegistered.Set(float64(flights))
	m.OraclesRegistered.Set(float64(oracles))
}

func (m *Metrics) AddPremium(amount decimal.Decimal) {
	m.PremiumsCollected.Add(amount.InexactFloat64())
}

func (m *Metrics) AddPayout(amount decimal.Decimal) {
	m.PayoutsCredited.Add(amount.InexactFloat64())
}

func (m *Metrics) AddWithdrawal(amount decimal.Decimal) {
	m.Withdrawn.Add(amount.InexactFloat64())
}

func (m *Metrics) IncrementPublishFailures() {
	m.PublishFailures.Inc()
}

func (m *Metrics) IncrementJournalFailures() {
	m.JournalFailures.Inc()
}
