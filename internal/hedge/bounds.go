package hedge

import (
	"fmt"
	"strconv"
)

// BreakEvenWeight multiplies the premium inside the upper bound formula.
type BreakEvenWeight int

const (
	// WeightSingle is variant A: ((spot + premium) * 2) - spot.
	WeightSingle BreakEvenWeight = 1
	// WeightDouble is variant B: ((spot + 2*premium) * 2) - spot.
	// The PnL curve pairs with this variant.
	WeightDouble BreakEvenWeight = 2
)

// Valid reports whether w is one of the two known variants.
func (w BreakEvenWeight) Valid() bool {
	return w == WeightSingle || w == WeightDouble
}

func (w BreakEvenWeight) String() string {
	switch w {
	case WeightSingle:
		return "single"
	case WeightDouble:
		return "double"
	default:
		return "weight(" + strconv.Itoa(int(w)) + ")"
	}
}

// ParseBreakEvenWeight accepts "1", "2", "single", "double", "a" or "b".
func ParseBreakEvenWeight(s string) (BreakEvenWeight, error) {
	switch s {
	case "1", "single", "a", "A":
		return WeightSingle, nil
	case "2", "double", "b", "B":
		return WeightDouble, nil
	}
	return 0, fmt.Errorf("%w: unknown break-even weight %q", ErrInvalidParameters, s)
}

// LowerBound returns 4*(strike - premium) - 3*spot.
// Degenerate inputs yield NaN or Inf; callers validate first.
func LowerBound(p PositionParameters) float64 {
	return 4*p.BreakEvenPrice() - 3*p.SpotPrice
}

// UpperBound returns ((spot + w*premium) * 2) - spot.
func UpperBound(p PositionParameters, w BreakEvenWeight) float64 {
	return ((p.SpotPrice + float64(w)*p.OptionPremium) * 2) - p.SpotPrice
}

// Bounds derives both bound prices after validating the input.
func Bounds(p PositionParameters, w BreakEvenWeight) (BoundPrices, error) {
	if err := p.Validate(); err != nil {
		return BoundPrices{}, err
	}
	if !w.Valid() {
		return BoundPrices{}, fmt.Errorf("%w: unknown break-even weight %d", ErrInvalidParameters, int(w))
	}
	return BoundPrices{
		LowerBound: LowerBound(p),
		UpperBound: UpperBound(p, w),
	}, nil
}

// BoundOffsets is the distance of each bound from spot, in percent.
type BoundOffsets struct {
	LowerPct float64 `json:"lower_pct"`
	UpperPct float64 `json:"upper_pct"`
}

// Offsets expresses the bounds relative to spot.
func (b BoundPrices) Offsets(spot float64) BoundOffsets {
	return BoundOffsets{
		LowerPct: (b.LowerBound - spot) / spot * 100,
		UpperPct: (b.UpperBound - spot) / spot * 100,
	}
}
