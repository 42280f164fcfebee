package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
)

// Quote is a spot price together with where and when it was observed.
type Quote struct {
	Symbol string    `json:"asset"`
	Price  float64   `json:"price"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
	Cached bool      `json:"cached"`
}

// Spot returns the price as a nullable value; nil for a nil quote.
func (q *Quote) Spot() *float64 {
	if q == nil {
		return nil
	}
	p := q.Price
	return &p
}

// Options tunes retries and the stale-cache fallback.
type Options struct {
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxStaleness bounds the age of a cached quote served when every
	// source fails. Zero disables the fallback.
	MaxStaleness time.Duration
	Cache        Cache
	Now          func() time.Time
	// Observer, when set, is told about every source attempt.
	Observer Observer
}

// Observer receives the outcome and latency of each source attempt.
type Observer interface {
	ObserveFetch(source string, d time.Duration, err error)
}

// Feed asks its sources in order and returns the first good price.
type Feed struct {
	sources []Source
	opts    Options
	logger  *zap.Logger
}

// NewFeed builds a feed over sources, tried in the given order.
func NewFeed(logger *zap.Logger, opts Options, sources ...Source) *Feed {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 2 * time.Second
	}
	return &Feed{
		sources: sources,
		opts:    opts,
		logger:  logger.Named("pricefeed"),
	}
}

// Sources returns the source names in fallback order.
func (f *Feed) Sources() []string {
	names := make([]string, len(f.sources))
	for i, s := range f.sources {
		names[i] = s.Name()
	}
	return names
}

// SpotPrice returns a live quote, or a recent cached one when every source
// fails. The error wraps hedge.ErrSpotUnavailable when neither exists.
func (f *Feed) SpotPrice(ctx context.Context, asset Asset) (Quote, error) {
	var errs []error
	for _, src := range f.sources {
		start := time.Now()
		price, err := f.fetch(ctx, src, asset)
		if f.opts.Observer != nil {
			f.opts.Observer.ObserveFetch(src.Name(), time.Since(start), err)
		}
		if err == nil {
			q := Quote{Symbol: asset.Symbol, Price: price, Source: src.Name(), At: f.opts.Now()}
			f.store(ctx, q)
			f.logger.Debug("Spot price fetched",
				zap.String("asset", asset.Symbol),
				zap.String("source", q.Source),
				zap.Float64("price", price))
			return q, nil
		}

		errs = append(errs, err)
		f.logger.Warn("Price source failed",
			zap.String("asset", asset.Symbol),
			zap.String("source", src.Name()),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}

	if q, ok := f.stale(ctx, asset.Symbol); ok {
		f.logger.Warn("Serving cached spot price",
			zap.String("asset", asset.Symbol),
			zap.String("source", q.Source),
			zap.Duration("age", f.opts.Now().Sub(q.At)))
		return q, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no price sources configured"))
	}
	return Quote{}, fmt.Errorf("%w: %s: %w", hedge.ErrSpotUnavailable, asset.Symbol, errors.Join(errs...))
}

func (f *Feed) fetch(ctx context.Context, src Source, asset Asset) (float64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.opts.InitialBackoff
	b.MaxInterval = f.opts.MaxBackoff

	return backoff.Retry(ctx, func() (float64, error) {
		price, err := src.SpotPrice(ctx, asset)
		if err != nil {
			return 0, err
		}
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			return 0, backoff.Permanent(fmt.Errorf("%s: implausible price %v", src.Name(), price))
		}
		return price, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(f.opts.Retries)+1))
}

func (f *Feed) store(ctx context.Context, q Quote) {
	if f.opts.Cache == nil {
		return
	}
	if err := f.opts.Cache.Set(ctx, q); err != nil {
		f.logger.Warn("Failed to cache spot price", zap.String("asset", q.Symbol), zap.Error(err))
	}
}

func (f *Feed) stale(ctx context.Context, symbol string) (Quote, bool) {
	if f.opts.Cache == nil || f.opts.MaxStaleness <= 0 {
		return Quote{}, false
	}
	// The caller's context may already be done; the cache read gets its own.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	q, err := f.opts.Cache.Get(cctx, symbol)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			f.logger.Warn("Failed to read cached spot price", zap.String("asset", symbol), zap.Error(err))
		}
		return Quote{}, false
	}
	if f.opts.Now().Sub(q.At) > f.opts.MaxStaleness {
		return Quote{}, false
	}
	q.Cached = true
	return q, true
}

// SpotPrices fetches several assets concurrently. Assets without a price
// map to nil.
func (f *Feed) SpotPrices(ctx context.Context, assets ...Asset) map[string]*Quote {
	out := make(map[string]*Quote, len(assets))
	var mu sync.Mutex
	var g errgroup.Group

	for _, asset := range assets {
		g.Go(func() error {
			q, err := f.SpotPrice(ctx, asset)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out[asset.Symbol] = nil
				return nil
			}
			out[asset.Symbol] = &q
			return nil
		})
	}
	_ = g.Wait()
	return out
}
