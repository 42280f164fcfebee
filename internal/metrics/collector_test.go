package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterVec(t *testing.T, c *Collector, mt MetricType) *prometheus.CounterVec {
	t.Helper()
	v, ok := load[*prometheus.CounterVec](c, mt)
	require.True(t, ok)
	return v
}

func TestRecordRequest(t *testing.T) {
	c := NewCollector()
	c.RecordRequest("/api/range", "POST", 200, 5*time.Millisecond)
	c.RecordRequest("/api/range", "POST", 200, 7*time.Millisecond)
	c.RecordRequest("/api/range", "POST", 422, time.Millisecond)

	requests := counterVec(t, c, RequestCounterType)
	assert.Equal(t, 2.0, testutil.ToFloat64(requests.WithLabelValues("/api/range", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("/api/range", "POST", "422")))

	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(requests))
}

func TestObserveFetchAndSweep(t *testing.T) {
	c := NewCollector()
	c.ObserveFetch("kraken", 20*time.Millisecond, nil)
	c.ObserveFetch("binance", time.Second, errors.New("451"))
	c.RecordSweep(1000, 3*time.Millisecond)

	fetches := counterVec(t, c, FeedCounterType)
	assert.Equal(t, 1.0, testutil.ToFloat64(fetches.WithLabelValues("kraken", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fetches.WithLabelValues("binance", "failure")))

	points, ok := load[prometheus.Counter](c, SweepPointsType)
	require.True(t, ok)
	assert.Equal(t, 1000.0, testutil.ToFloat64(points))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordRequest("/", "GET", 200, time.Millisecond)
		c.ObserveFetch("pyth", time.Millisecond, nil)
		c.RecordSweep(1, time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordSweep(10, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lp_hedge_sweep_points_total 10")
	assert.Contains(t, string(body), "go_goroutines")
}
