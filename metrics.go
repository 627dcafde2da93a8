package spacetraveling

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eringen/spacetraveling/prismic"
)

// Metrics holds the app's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	contentRequests     *prometheus.HistogramVec
	contentCache        *prometheus.CounterVec
	pageGenerations     *prometheus.HistogramVec
	loadMore            *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		contentRequests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "content_api_request_duration_seconds",
				Help:    "Duration of content repository calls in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "result"},
		),
		contentCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_api_cache_lookups_total",
				Help: "Content response cache lookups",
			},
			[]string{"result"},
		),
		pageGenerations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "page_generation_duration_seconds",
				Help:    "Duration of page generations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		),
		loadMore: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "load_more_total",
				Help: "Load-more requests by outcome",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.contentRequests,
		m.contentCache,
		m.pageGenerations,
		m.loadMore,
	)
	return m
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else {
				status = 500
			}
		}
		method := c.Request().Method
		m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// Request implements prismic.Observer.
func (m *Metrics) Request(op string, d time.Duration, err error) {
	m.contentRequests.WithLabelValues(op, errorKind(err)).Observe(d.Seconds())
}

// CacheLookup implements prismic.Observer.
func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.contentCache.WithLabelValues("hit").Inc()
		return
	}
	m.contentCache.WithLabelValues("miss").Inc()
}

// PageGenerated records one page cache generation.
func (m *Metrics) PageGenerated(kind string, d time.Duration, err error) {
	m.pageGenerations.WithLabelValues(kind, errorKind(err)).Observe(d.Seconds())
}

// LoadMore records the outcome of a load-more request.
func (m *Metrics) LoadMore(err error) {
	m.loadMore.WithLabelValues(errorKind(err)).Inc()
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, prismic.ErrNotFound):
		return "not_found"
	case errors.Is(err, prismic.ErrMalformed):
		return "malformed"
	case errors.Is(err, prismic.ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

var _ prismic.Observer = (*Metrics)(nil)
