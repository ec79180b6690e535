package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	PurchaseOutcomes *prometheus.CounterVec
	PurchaseDuration prometheus.Histogram
	MarketOpens      prometheus.Counter
	MarketCloses     *prometheus.CounterVec
	SchedulerTicks   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PurchaseOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_purchase_total",
				Help: "Purchase attempts by outcome.",
			},
			[]string{"outcome"},
		),
		PurchaseDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "market_purchase_duration_seconds",
				Help:    "Duration of the purchase critical section in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		MarketOpens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "market_open_total",
				Help: "Count of market windows opened.",
			},
		),
		MarketCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_close_total",
				Help: "Count of market windows closed, by reason.",
			},
			[]string{"reason"},
		),
		SchedulerTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "market_expiry_ticks_total",
				Help: "Count of expiry scheduler sweeps.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.PurchaseOutcomes,
			m.PurchaseDuration,
			m.MarketOpens,
			m.MarketCloses,
			m.SchedulerTicks,
		)
	}
	return m
}
