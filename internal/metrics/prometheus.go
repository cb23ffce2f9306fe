package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds the Prometheus instruments exported on /metrics. Each
// instance owns its registry so tests can create as many as they like.
type Collectors struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	sessionsCreated  prometheus.Counter
	generationErrors prometheus.Counter
	priceReports     *prometheus.CounterVec
	recommendations  *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec

	knownStores map[string]bool
}

// OtherStore labels recommendations of stores outside the known set.
const OtherStore = "other"

// NewCollectors registers all instruments. activeSessions is sampled on every
// scrape. Recommendations are labelled with the store id only for
// knownStores; store ids come from clients, so the rest share one series.
func NewCollectors(activeSessions func() float64, knownStores []string) *Collectors {
	c := &Collectors{
		registry:    prometheus.NewRegistry(),
		knownStores: make(map[string]bool, len(knownStores)),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meal_shopper",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meal_shopper",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meal_shopper",
			Name:      "sessions_created_total",
			Help:      "Sessions created from generated meal plans.",
		}),
		generationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meal_shopper",
			Name:      "plan_generation_failures_total",
			Help:      "Meal plan generations that failed.",
		}),
		priceReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meal_shopper",
			Name:      "price_reports_total",
			Help:      "Price reports by outcome.",
		}, []string{"outcome"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meal_shopper",
			Name:      "store_recommendations_total",
			Help:      "Decisions by recommended store.",
		}, []string{"store"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meal_shopper",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by model calls.",
		}, []string{"agent", "kind"}),
	}

	for _, id := range knownStores {
		c.knownStores[id] = true
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.sessionsCreated,
		c.generationErrors,
		c.priceReports,
		c.recommendations,
		c.llmTokens,
	)
	if activeSessions != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "meal_shopper",
			Name:      "active_sessions",
			Help:      "Sessions currently held by the session store.",
		}, activeSessions))
	}
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry for gathering and extra collectors.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collectors) ObserveHTTP(route string, code int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (c *Collectors) SessionCreated() {
	c.sessionsCreated.Inc()
}

func (c *Collectors) GenerationFailed() {
	c.generationErrors.Inc()
}

// PriceReport counts a processed report; outcome is "decided" or a short
// failure reason.
func (c *Collectors) PriceReport(outcome string) {
	c.priceReports.WithLabelValues(outcome).Inc()
}

func (c *Collectors) Recommended(store string) {
	if !c.knownStores[store] {
		store = OtherStore
	}
	c.recommendations.WithLabelValues(store).Inc()
}

func (c *Collectors) TokensUsed(agent string, prompt, completion int) {
	c.llmTokens.WithLabelValues(agent, "prompt").Add(float64(prompt))
	c.llmTokens.WithLabelValues(agent, "completion").Add(float64(completion))
}
