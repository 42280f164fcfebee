// Package server exposes the calculator as a JSON HTTP API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedge/internal/export"
	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/metrics"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
)

// DefaultMaxPoints caps the sweep size a client may request.
const DefaultMaxPoints = 10000

var errUnknownAsset = errors.New("unknown asset")

// SpotProvider returns live spot quotes; *pricefeed.Feed implements it.
type SpotProvider interface {
	SpotPrice(ctx context.Context, asset pricefeed.Asset) (pricefeed.Quote, error)
}

// Options holds the defaults applied to requests that leave a field out.
type Options struct {
	Engine      hedge.Config
	LowerFactor float64
	UpperFactor float64
	Points      int
	MaxPoints   int
	Workers     int
	// Metrics, when set, is updated per request and served on /metrics.
	Metrics *metrics.Collector
}

// Handler serves the API routes.
type Handler struct {
	feed   SpotProvider
	assets *pricefeed.Registry
	opts   Options
	logger *zap.Logger
}

func NewHandler(feed SpotProvider, assets *pricefeed.Registry, opts Options, logger *zap.Logger) *Handler {
	if opts.LowerFactor <= 0 {
		opts.LowerFactor = hedge.DefaultLowerFactor
	}
	if opts.UpperFactor <= 0 {
		opts.UpperFactor = hedge.DefaultUpperFactor
	}
	if opts.Points <= 0 {
		opts.Points = hedge.DefaultPoints
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = DefaultMaxPoints
	}
	return &Handler{feed: feed, assets: assets, opts: opts, logger: logger}
}

// Router builds the mux with every route and middleware attached.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, h.loggingMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	api.HandleFunc("/spot/{asset}", h.SpotHandler).Methods(http.MethodGet)
	api.HandleFunc("/range", h.RangeHandler).Methods(http.MethodPost)
	api.HandleFunc("/curve", h.CurveHandler).Methods(http.MethodPost)

	if h.opts.Metrics != nil {
		r.Handle("/metrics", h.opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// variant accepts a JSON string or number so {"break_even_weight": 2} and
// {"break_even_weight": "double"} both work.
type variant string

func (v *variant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = variant(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = variant(n.String())
	return nil
}

// CalcRequest is the body of /api/range and /api/curve.
type CalcRequest struct {
	Asset           string   `json:"asset"`
	Strike          *float64 `json:"strike"`
	Premium         *float64 `json:"premium"`
	Spot            *float64 `json:"spot"`
	BreakEvenWeight variant  `json:"break_even_weight"`
	TieBreak        string   `json:"tie_break"`
	Partition       string   `json:"partition"`
	Points          int      `json:"points"`
	From            *float64 `json:"from"`
	To              *float64 `json:"to"`
}

// RangeResponse is the body returned by /api/range.
type RangeResponse struct {
	Asset           string                   `json:"asset,omitempty"`
	Params          hedge.PositionParameters `json:"params"`
	SpotSource      string                   `json:"spot_source"`
	Bounds          hedge.BoundPrices        `json:"bounds"`
	Offsets         hedge.BoundOffsets       `json:"offsets"`
	BreakEven       float64                  `json:"break_even"`
	BreakEvenWeight string                   `json:"break_even_weight"`
}

// CurveResponse is the body returned by /api/curve.
type CurveResponse struct {
	Summary    export.Summary    `json:"summary"`
	SpotSource string            `json:"spot_source"`
	Range      hedge.SweepRange  `json:"range"`
	Samples    []hedge.PnLSample `json:"samples"`
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SpotHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := h.lookup(mux.Vars(r)["asset"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.feed.SpotPrice(r.Context(), asset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) RangeHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	cfg, err := h.engineConfig(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	params, source, err := h.params(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := hedge.Bounds(params, cfg.BreakEvenWeight)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RangeResponse{
		Asset:           strings.ToUpper(req.Asset),
		Params:          params,
		SpotSource:      source,
		Bounds:          b,
		Offsets:         b.Offsets(params.SpotPrice),
		BreakEven:       params.BreakEvenPrice(),
		BreakEvenWeight: cfg.BreakEvenWeight.String(),
	})
}

func (h *Handler) CurveHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	cfg, err := h.engineConfig(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	engine, err := hedge.NewEngine(cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	params, source, err := h.params(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := engine.Bounds(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rng, err := h.sweepRange(req, b)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	start := time.Now()
	curve, err := engine.Sweep(r.Context(), params, rng, h.opts.Workers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.opts.Metrics.RecordSweep(len(curve.Samples), time.Since(start))

	writeJSON(w, http.StatusOK, CurveResponse{
		Summary:    export.Summarize(req.Asset, curve),
		SpotSource: source,
		Range:      curve.Range,
		Samples:    curve.Samples,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CalcRequest, bool) {
	var req CalcRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return req, false
	}
	return req, true
}

func (h *Handler) lookup(symbol string) (pricefeed.Asset, error) {
	if h.assets == nil {
		return pricefeed.Asset{}, fmt.Errorf("%w %q", errUnknownAsset, symbol)
	}
	a, err := h.assets.Lookup(symbol)
	if err != nil {
		return pricefeed.Asset{}, fmt.Errorf("%w: %v", errUnknownAsset, err)
	}
	return a, nil
}

func (h *Handler) engineConfig(req CalcRequest) (hedge.Config, error) {
	cfg := h.opts.Engine
	if req.BreakEvenWeight != "" {
		w, err := hedge.ParseBreakEvenWeight(string(req.BreakEvenWeight))
		if err != nil {
			return cfg, err
		}
		cfg.BreakEvenWeight = w
	}
	if req.TieBreak != "" {
		tb, err := hedge.ParseTieBreak(req.TieBreak)
		if err != nil {
			return cfg, err
		}
		cfg.TieBreak = tb
	}
	if req.Partition != "" {
		p, err := hedge.ParsePartition(req.Partition)
		if err != nil {
			return cfg, err
		}
		cfg.Partition = p
	}
	return cfg, cfg.Validate()
}

// params resolves the spot, fetching it when the request leaves it out.
func (h *Handler) params(ctx context.Context, req CalcRequest) (hedge.PositionParameters, string, error) {
	if req.Strike == nil || req.Premium == nil {
		return hedge.PositionParameters{}, "", fmt.Errorf("%w: strike and premium are required", hedge.ErrInvalidParameters)
	}

	spot, source := req.Spot, "request"
	if spot == nil {
		if req.Asset == "" {
			return hedge.PositionParameters{}, "", fmt.Errorf("%w: spot or asset is required", hedge.ErrInvalidParameters)
		}
		asset, err := h.lookup(req.Asset)
		if err != nil {
			return hedge.PositionParameters{}, "", err
		}
		q, err := h.feed.SpotPrice(ctx, asset)
		if err != nil {
			return hedge.PositionParameters{}, "", err
		}
		spot, source = q.Spot(), q.Source
	}

	p, err := hedge.NewPositionParameters(*req.Strike, *req.Premium, spot)
	return p, source, err
}

func (h *Handler) sweepRange(req CalcRequest, b hedge.BoundPrices) (hedge.SweepRange, error) {
	rng := hedge.RangeAround(b, h.opts.LowerFactor, h.opts.UpperFactor, h.opts.Points)
	if req.Points != 0 {
		rng.Points = req.Points
	}
	if req.From != nil {
		rng.From = *req.From
	}
	if req.To != nil {
		rng.To = *req.To
	}
	if rng.Points > h.opts.MaxPoints {
		return rng, fmt.Errorf("%w: at most %d points", hedge.ErrInvalidParameters, h.opts.MaxPoints)
	}
	return rng, rng.Validate()
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hedge.ErrInvalidParameters), errors.Is(err, hedge.ErrDegenerateBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, hedge.ErrSpotUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.logger.Warn("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
