// Package metrics exposes Prometheus instrumentation for the claim workflow
// and the two stores.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trialbot"

// Collector records claim outcomes and exports store sizes.
type Collector struct {
	claims        *prometheus.CounterVec
	claimDuration prometheus.Histogram
	compensations prometheus.Counter
	adminCommands *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. If reg is nil the
// default registerer is used. pool and assignments are sampled on every scrape.
func New(reg prometheus.Registerer, pool, assignments func() int) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "outcomes_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		claimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "duration_seconds",
			Help:      "Time from claim to outcome, including key delivery.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claim",
			Name:      "compensations_total",
			Help:      "Reserved keys returned to the pool after a failed delivery.",
		}),
		adminCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "commands_total",
			Help:      "Admin commands handled by command name.",
		}, []string{"command"}),
	}

	collectors := []prometheus.Collector{c.claims, c.claimDuration, c.compensations, c.adminCommands}
	if pool != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "keys_available",
			Help:      "Keys currently in the pool.",
		}, func() float64 { return float64(pool()) }))
	}
	if assignments != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "assignments",
			Help:      "Accounts holding a trial key.",
		}, func() float64 { return float64(assignments()) }))
	}
	reg.MustRegister(collectors...)

	return c
}

// ObserveClaim records one finished claim.
func (c *Collector) ObserveClaim(outcome string, compensated bool, elapsed time.Duration) {
	c.claims.WithLabelValues(outcome).Inc()
	c.claimDuration.Observe(elapsed.Seconds())
	if compensated {
		c.compensations.Inc()
	}
}

// ObserveCommand records one handled admin command.
func (c *Collector) ObserveCommand(name string) {
	c.adminCommands.WithLabelValues(name).Inc()
}
