package hedge

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Default sweep grid: DefaultLowerFactor and DefaultUpperFactor scale the
// lower and upper bound into the grid ends, DefaultPoints is the number of
// evaluated prices with both ends included.
const (
	DefaultLowerFactor = 0.5
	DefaultUpperFactor = 1.2
	DefaultPoints      = 1000
)

// SweepRange is an inclusive, evenly spaced price grid. From and To may be
// given in either order; the grid always ascends.
type SweepRange struct {
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Points int     `json:"points"`
}

// DefaultRange spans from half the lower bound to 120% of the upper bound.
func DefaultRange(b BoundPrices) SweepRange {
	return RangeAround(b, DefaultLowerFactor, DefaultUpperFactor, DefaultPoints)
}

// RangeAround scales the bounds by the given factors.
func RangeAround(b BoundPrices, lowerFactor, upperFactor float64, points int) SweepRange {
	return SweepRange{
		From:   b.LowerBound * lowerFactor,
		To:     b.UpperBound * upperFactor,
		Points: points,
	}
}

// Validate checks the grid can be built.
func (r SweepRange) Validate() error {
	if !isFinite(r.From) || !isFinite(r.To) {
		return fmt.Errorf("%w: sweep range [%v, %v] is not finite", ErrInvalidParameters, r.From, r.To)
	}
	if r.Points < 1 {
		return fmt.Errorf("%w: sweep needs at least one point, got %d", ErrInvalidParameters, r.Points)
	}
	return nil
}

// Ordered returns r with From <= To.
func (r SweepRange) Ordered() SweepRange {
	if r.From > r.To {
		r.From, r.To = r.To, r.From
	}
	return r
}

// Prices returns the ascending grid, endpoints included.
func (r SweepRange) Prices() []float64 {
	r = r.Ordered()
	prices := make([]float64, r.Points)
	if r.Points == 1 {
		prices[0] = r.From
		return prices
	}
	step := (r.To - r.From) / float64(r.Points-1)
	for i := range prices {
		prices[i] = r.From + float64(i)*step
	}
	prices[r.Points-1] = r.To
	return prices
}

// Sweep evaluates every price of rng concurrently and returns the samples in
// ascending price order. Either every point is evaluated or an error is
// returned.
func (e *Engine) Sweep(ctx context.Context, p PositionParameters, rng SweepRange, workers int) (*Curve, error) {
	b, err := e.Bounds(p)
	if err != nil {
		return nil, err
	}
	if err := checkBounds(p, b); err != nil {
		return nil, err
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	rng = rng.Ordered()
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	prices := rng.Prices()
	samples := make([]PnLSample, len(prices))

	chunk := (len(prices) + workers - 1) / workers
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(prices); start += chunk {
		start, end := start, min(start+chunk, len(prices))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				s, err := e.Evaluate(p, b, prices[i])
				if err != nil {
					return fmt.Errorf("evaluate at %v: %w", prices[i], err)
				}
				samples[i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Curve{
		Params:  p,
		Bounds:  b,
		Config:  e.cfg,
		Range:   rng,
		Samples: samples,
	}, nil
}

// Marker is a labelled price of interest on the curve.
type Marker struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// Marker labels, in the order Markers returns them.
const (
	MarkerCurrent    = "Current Price"
	MarkerBreakEven  = "Break-even"
	MarkerLowerBound = "Lower Bound"
	MarkerUpperBound = "Upper Bound"
	MarkerStrike     = "Strike Price"
)

// Curve is a complete sweep together with the inputs that produced it.
type Curve struct {
	Params  PositionParameters `json:"params"`
	Bounds  BoundPrices        `json:"bounds"`
	Config  Config             `json:"-"`
	Range   SweepRange         `json:"range"`
	Samples []PnLSample        `json:"samples"`
}

// MaxLoss returns the sample with the lowest normalized PnL. Ties keep the
// lowest price.
func (c *Curve) MaxLoss() PnLSample {
	return c.extreme(func(a, b float64) bool { return a < b })
}

// MaxGain returns the sample with the highest normalized PnL.
func (c *Curve) MaxGain() PnLSample {
	return c.extreme(func(a, b float64) bool { return a > b })
}

func (c *Curve) extreme(better func(a, b float64) bool) PnLSample {
	if len(c.Samples) == 0 {
		return PnLSample{}
	}
	best := c.Samples[0]
	for _, s := range c.Samples[1:] {
		if better(s.NormalizedPnL, best.NormalizedPnL) {
			best = s
		}
	}
	return best
}

// Markers lists the chart annotations.
func (c *Curve) Markers() []Marker {
	return []Marker{
		{Label: MarkerCurrent, Price: c.Params.SpotPrice},
		{Label: MarkerBreakEven, Price: c.Params.BreakEvenPrice()},
		{Label: MarkerLowerBound, Price: c.Bounds.LowerBound},
		{Label: MarkerUpperBound, Price: c.Bounds.UpperBound},
		{Label: MarkerStrike, Price: c.Params.StrikePrice},
	}
}

// Breakpoints returns the sorted prices where the piecewise formula may
// change shape: the range ends plus spot, strike and both bounds when they
// fall inside the range.
func (c *Curve) Breakpoints() []float64 {
	lo, hi := c.Range.From, c.Range.To
	if lo > hi {
		lo, hi = hi, lo
	}
	points := []float64{lo, hi}
	for _, v := range []float64{c.Params.SpotPrice, c.Params.StrikePrice, c.Bounds.LowerBound, c.Bounds.UpperBound} {
		if v > lo && v < hi {
			points = append(points, v)
		}
	}
	sort.Float64s(points)
	return points
}

// NormalizedSeries returns the normalized PnL of every sample in price order.
func (c *Curve) NormalizedSeries() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = s.NormalizedPnL
	}
	return out
}
