// Package metrics exposes Prometheus counters and histograms for the API,
// the price feed and the PnL sweeps.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType names one collector in the set.
type MetricType string

const (
	RequestCounterType  MetricType = "request_counter"
	RequestDurationType MetricType = "request_duration"
	FeedCounterType     MetricType = "feed_counter"
	FeedLatencyType     MetricType = "feed_latency"
	SweepDurationType   MetricType = "sweep_duration"
	SweepPointsType     MetricType = "sweep_points"
)

const namespace = "lp_hedge"

// Collector owns its own registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry
	metrics  sync.Map
}

// NewCollector creates and registers every metric.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	for metricType, metric := range map[MetricType]prometheus.Collector{
		RequestCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "method", "code"}),
		RequestDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"route"}),
		FeedCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetches_total",
			Help:      "Spot price fetches per source",
		}, []string{"source", "status"}),
		FeedLatencyType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_fetch_duration_seconds",
			Help:      "Spot price fetch latency in seconds, retries included",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"source"}),
		SweepDurationType: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "PnL curve sweep duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		SweepPointsType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_points_total",
			Help:      "Total number of evaluated curve points",
		}),
	} {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
	c.registry.MustRegister(collectors.NewGoCollector())
	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reset clears all labelled series (useful in tests).
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

func load[T any](c *Collector, t MetricType) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.metrics.Load(t)
	if !ok {
		return zero, false
	}
	m, ok := v.(T)
	return m, ok
}

// RecordRequest records one API request. route is the mux path template.
func (c *Collector) RecordRequest(route, method string, code int, d time.Duration) {
	if counter, ok := load[*prometheus.CounterVec](c, RequestCounterType); ok {
		counter.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	}
	if hist, ok := load[*prometheus.HistogramVec](c, RequestDurationType); ok {
		hist.WithLabelValues(route).Observe(d.Seconds())
	}
}

// ObserveFetch records one source attempt of the price feed.
func (c *Collector) ObserveFetch(source string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	if counter, ok := load[*prometheus.CounterVec](c, FeedCounterType); ok {
		counter.WithLabelValues(source, status).Inc()
	}
	if hist, ok := load[*prometheus.HistogramVec](c, FeedLatencyType); ok {
		hist.WithLabelValues(source).Observe(d.Seconds())
	}
}

// RecordSweep records a finished curve sweep.
func (c *Collector) RecordSweep(points int, d time.Duration) {
	if hist, ok := load[prometheus.Histogram](c, SweepDurationType); ok {
		hist.Observe(d.Seconds())
	}
	if counter, ok := load[prometheus.Counter](c, SweepPointsType); ok {
		counter.Add(float64(points))
	}
}
