package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "costguard"

// Collector owns every Prometheus metric emitted by the pipeline.
//
// Metrics:
//   - costguard_events_total: Usage events recorded, by source
//   - costguard_cost_usd_total: Attributed spend in USD, by model and source
//   - costguard_cost_per_event_usd: Cost distribution per event (histogram)
//   - costguard_budget_level: Current budget level per scope (0=ok .. 3=exceeded)
//   - costguard_alerts_total: Sentinel alerts fired, by detector and severity
//   - costguard_pricing_refresh_total: Price table refreshes, by source
//
// A nil *Collector is valid and records nothing, so callers that run with
// metrics disabled skip the instrumentation without branching.
type Collector struct {
	registry *prometheus.Registry

	eventsTotal  *prometheus.CounterVec
	costTotal    *prometheus.CounterVec
	costPerEvent *prometheus.HistogramVec

	budgetLevel *prometheus.GaugeVec

	alertsTotal         *prometheus.CounterVec
	pricingRefreshTotal *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a private registry is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Usage events recorded, by attribution source",
			},
			[]string{"source"},
		),

		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_usd_total",
				Help:      "Attributed spend in USD, by model and source",
			},
			[]string{"model", "source"},
		),

		costPerEvent: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cost_per_event_usd",
				Help:      "Cost distribution per usage event in USD",
				// Agent turns run from fractions of a cent to a few dollars.
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"model"},
		),

		budgetLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "budget_level",
				Help:      "Current budget level per scope (0=ok 1=warning 2=throttle 3=exceeded)",
			},
			[]string{"scope"},
		),

		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Sentinel alerts fired, by detector and severity",
			},
			[]string{"detector", "severity"},
		),

		pricingRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pricing_refresh_total",
				Help:      "Price table refreshes, by source (remote, local-cache, none)",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		c.eventsTotal,
		c.costTotal,
		c.costPerEvent,
		c.budgetLevel,
		c.alertsTotal,
		c.pricingRefreshTotal,
	)

	return c
}

// RecordEvent records a single usage event and its attributed cost.
func (c *Collector) RecordEvent(source, model string, costUSD float64) {
	if c == nil {
		return
	}

	c.eventsTotal.WithLabelValues(source).Inc()
	if costUSD > 0 {
		c.costTotal.WithLabelValues(model, source).Add(costUSD)
		c.costPerEvent.WithLabelValues(model).Observe(costUSD)
	}
}

// SetBudgetLevel updates the budget pressure gauge for a scope.
func (c *Collector) SetBudgetLevel(scope string, level int) {
	if c == nil {
		return
	}

	c.budgetLevel.WithLabelValues(scope).Set(float64(level))
}

// RecordAlert counts a fired sentinel alert.
func (c *Collector) RecordAlert(detector, severity string) {
	if c == nil {
		return
	}

	c.alertsTotal.WithLabelValues(detector, severity).Inc()
}

// RecordPricingRefresh counts a price table refresh by its source.
func (c *Collector) RecordPricingRefresh(source string) {
	if c == nil {
		return
	}

	c.pricingRefreshTotal.WithLabelValues(source).Inc()
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the metrics endpoint in the
// standard exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
