package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/metrics"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
)

type fakeFeed struct {
	prices map[string]float64
}

func (f *fakeFeed) SpotPrice(_ context.Context, asset pricefeed.Asset) (pricefeed.Quote, error) {
	p, ok := f.prices[asset.Symbol]
	if !ok {
		return pricefeed.Quote{}, fmt.Errorf("%w: %s", hedge.ErrSpotUnavailable, asset.Symbol)
	}
	return pricefeed.Quote{Symbol: asset.Symbol, Price: p, Source: "fake", At: time.Now()}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewHandler(
		&fakeFeed{prices: map[string]float64{"SOL": 123}},
		pricefeed.NewRegistry(),
		Options{Engine: hedge.DefaultConfig(), Points: 101, MaxPoints: 500, Workers: 2},
		zap.NewNop(),
	)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestSpot(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/spot/sol", http.StatusOK},
		{"/api/spot/ETH", http.StatusServiceUnavailable},
		{"/api/spot/DOGE", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				var q pricefeed.Quote
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
				assert.Equal(t, "SOL", q.Symbol)
				assert.Equal(t, 123.0, q.Price)
				assert.Equal(t, "fake", q.Source)
			}
		})
	}
}

func TestRange(t *testing.T) {
	srv := newTestServer(t)

	t.Run("explicit spot, single premium weight", func(t *testing.T) {
		resp := post(t, srv, "/api/range", `{"strike": 120, "premium": 10.79, "spot": 123, "break_even_weight": 1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body RangeResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.InDelta(t, 67.84, body.Bounds.LowerBound, 1e-9)
		assert.InDelta(t, 144.58, body.Bounds.UpperBound, 1e-9)
		assert.InDelta(t, 109.21, body.BreakEven, 1e-9)
		assert.Equal(t, "request", body.SpotSource)
		assert.Equal(t, "single", body.BreakEvenWeight)
	})

	t.Run("spot from feed", func(t *testing.T) {
		resp := post(t, srv, "/api/range", `{"asset": "sol", "strike": 120, "premium": 10.79}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body RangeResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "SOL", body.Asset)
		assert.Equal(t, "fake", body.SpotSource)
		assert.Equal(t, 123.0, body.Params.SpotPrice)
		assert.InDelta(t, 166.16, body.Bounds.UpperBound, 1e-9)
	})
}

func TestCurve(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/api/curve", `{"asset": "SOL", "strike": 120, "premium": 10.79, "points": 201}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CurveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Samples, 201)
	assert.Equal(t, 201, body.Range.Points)
	assert.InDelta(t, 67.84*0.5, body.Range.From, 1e-9)
	assert.Equal(t, "double", body.Summary.BreakEvenWeight)
	assert.Len(t, body.Summary.Markers, 5)
	assert.Less(t, body.Summary.MaxLoss.NormalizedPnL, 0.0)
	for _, s := range body.Samples {
		assert.GreaterOrEqual(t, s.NormalizedPnL, body.Summary.MaxLoss.NormalizedPnL)
	}
}

func TestCurveHonorsVariants(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/api/curve",
		`{"strike": 120, "premium": 10.79, "spot": 123, "from": 123, "to": 123, "points": 1, "tie_break": "half_open", "partition": "strike_only"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CurveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Samples, 1)
	assert.Equal(t, hedge.RegimeBullish, body.Samples[0].Regime)
	assert.Equal(t, "half_open", body.Summary.TieBreak)
	assert.Equal(t, "strike_only", body.Summary.Partition)
}

func TestCurveReversedRangeAscends(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/api/curve",
		`{"strike": 120, "premium": 10.79, "spot": 123, "from": 200, "to": 50, "points": 4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CurveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 50.0, body.Range.From)
	assert.Equal(t, 200.0, body.Range.To)
	require.Len(t, body.Samples, 4)
	for i := 1; i < len(body.Samples); i++ {
		assert.Less(t, body.Samples[i-1].HypotheticalPrice, body.Samples[i].HypotheticalPrice)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed JSON", "/api/range", `{"strike": `, http.StatusBadRequest},
		{"unknown field", "/api/range", `{"strike": 1, "premium": 1, "spot": 1, "bogus": true}`, http.StatusBadRequest},
		{"missing strike", "/api/range", `{"premium": 1, "spot": 100}`, http.StatusUnprocessableEntity},
		{"no spot and no asset", "/api/range", `{"strike": 120, "premium": 10}`, http.StatusUnprocessableEntity},
		{"zero spot", "/api/range", `{"strike": 120, "premium": 10, "spot": 0}`, http.StatusUnprocessableEntity},
		{"bad weight", "/api/range", `{"strike": 120, "premium": 10, "spot": 123, "break_even_weight": 3}`, http.StatusUnprocessableEntity},
		{"degenerate bounds", "/api/curve", `{"strike": 110, "premium": 10, "spot": 100}`, http.StatusUnprocessableEntity},
		{"too many points", "/api/curve", `{"strike": 120, "premium": 10.79, "spot": 123, "points": 501}`, http.StatusUnprocessableEntity},
		{"spot unavailable", "/api/curve", `{"asset": "ETH", "strike": 2300, "premium": 129}`, http.StatusServiceUnavailable},
		{"unknown asset", "/api/range", `{"asset": "DOGE", "strike": 1, "premium": 0.1}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/curve")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	h := NewHandler(&fakeFeed{}, pricefeed.NewRegistry(), Options{Engine: hedge.DefaultConfig()}, zap.NewNop())
	s := New("127.0.0.1:0", h, time.Second, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewHandler(
		&fakeFeed{prices: map[string]float64{"SOL": 123}},
		pricefeed.NewRegistry(),
		Options{Engine: hedge.DefaultConfig(), Points: 11, Metrics: metrics.NewCollector()},
		zap.NewNop(),
	)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp := post(t, srv, "/api/curve", `{"asset":"SOL","strike":120,"premium":10.79}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, srv, "/api/range", `{"strike":120,"premium":10,"spot":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, `lp_hedge_http_requests_total{code="200",method="POST",route="/api/curve"} 1`)
	assert.Contains(t, body, `lp_hedge_http_requests_total{code="422",method="POST",route="/api/range"} 1`)
	assert.Contains(t, body, "lp_hedge_sweep_points_total 11")
}

func TestMetricsRouteIsOptional(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
