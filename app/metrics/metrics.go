package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the checkout collectors. A nil *Collector is valid and
// records nothing, so library users that do not scrape metrics pay nothing.
type Collector struct {
	APIRequests  *prometheus.CounterVec
	APIDuration  *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
	Outcomes     *prometheus.CounterVec
	OpenSessions prometheus.Gauge
}

func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend payment API calls by operation and outcome code.",
		}, []string{"operation", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_ms",
			Help:      "Backend payment API latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"operation"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Checkout state machine transitions.",
		}, []string{"from", "to"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_outcomes_total",
			Help:      "Terminal checkout outcomes by provider and result.",
		}, []string{"psp", "outcome"}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sessions",
			Help:      "Checkout sessions currently hosted in memory.",
		}),
	}
	c.APIRequests = registerCounter(reg, c.APIRequests)
	c.APIDuration = registerHistogram(reg, c.APIDuration)
	c.Transitions = registerCounter(reg, c.Transitions)
	c.Outcomes = registerCounter(reg, c.Outcomes)
	c.OpenSessions = registerGauge(reg, c.OpenSessions)
	return c
}

func (c *Collector) ObserveAPI(operation, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	c.APIRequests.WithLabelValues(operation, outcome).Inc()
	c.APIDuration.WithLabelValues(operation).Observe(float64(took) / float64(time.Millisecond))
}

func (c *Collector) ObserveTransition(from, to string) {
	if c == nil || from == to {
		return
	}
	c.Transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) ObserveOutcome(psp, outcome string) {
	if c == nil {
		return
	}
	if psp == "" {
		psp = "unknown"
	}
	c.Outcomes.WithLabelValues(psp, outcome).Inc()
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.OpenSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.OpenSessions.Dec()
}

func registerCounter(reg prometheus.Registerer, counter *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register counter: %w", err))
	}
	return counter
}

func registerHistogram(reg prometheus.Registerer, histo *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := reg.Register(histo); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register histogram: %w", err))
	}
	return histo
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge) prometheus.Gauge {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register gauge: %w", err))
	}
	return gauge
}
