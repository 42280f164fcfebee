// Package hedge computes the LP range and the PnL curve of a liquidity
// position hedged with a long put.
//
// The position is two units of underlying provided as liquidity between a
// lower and an upper bound price, plus two long puts at the strike. Every
// function in this package is pure: no I/O, no logging, no shared state.
package hedge

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameters is returned for non-finite or out-of-domain input.
	ErrInvalidParameters = errors.New("invalid position parameters")
	// ErrDegenerateBounds is returned when a bound equals the spot price and
	// the position ratio would be undefined.
	ErrDegenerateBounds = errors.New("degenerate bound prices")
	// ErrSpotUnavailable is returned when no spot price could be obtained.
	ErrSpotUnavailable = errors.New("spot price unavailable")
)

// OptionUnits is the fixed size of the long put leg.
const OptionUnits = 2

// PositionParameters describes one calculation request.
type PositionParameters struct {
	StrikePrice   float64 `json:"strike_price"`
	OptionPremium float64 `json:"option_premium"`
	SpotPrice     float64 `json:"spot_price"`
}

// NewPositionParameters builds validated parameters from a nullable spot
// quote. A nil spot means the feed had nothing to offer and is never read
// as zero.
func NewPositionParameters(strike, premium float64, spot *float64) (PositionParameters, error) {
	if spot == nil {
		return PositionParameters{}, ErrSpotUnavailable
	}
	p := PositionParameters{
		StrikePrice:   strike,
		OptionPremium: premium,
		SpotPrice:     *spot,
	}
	if err := p.Validate(); err != nil {
		return PositionParameters{}, err
	}
	return p, nil
}

// Validate checks the domain of the parameters.
func (p PositionParameters) Validate() error {
	switch {
	case !isFinite(p.StrikePrice):
		return fmt.Errorf("%w: strike price %v is not finite", ErrInvalidParameters, p.StrikePrice)
	case !isFinite(p.OptionPremium):
		return fmt.Errorf("%w: option premium %v is not finite", ErrInvalidParameters, p.OptionPremium)
	case !isFinite(p.SpotPrice):
		return fmt.Errorf("%w: spot price %v is not finite", ErrInvalidParameters, p.SpotPrice)
	case p.SpotPrice <= 0:
		return fmt.Errorf("%w: spot price must be positive, got %v", ErrInvalidParameters, p.SpotPrice)
	case p.OptionPremium < 0:
		return fmt.Errorf("%w: option premium must not be negative, got %v", ErrInvalidParameters, p.OptionPremium)
	}
	return nil
}

// BreakEvenPrice is the price at which the put leg alone neither gains nor loses.
func (p PositionParameters) BreakEvenPrice() float64 {
	return p.StrikePrice - p.OptionPremium
}

// Notional is the value of the two-unit position at spot.
func (p PositionParameters) Notional() float64 {
	return p.SpotPrice * OptionUnits
}

// BoundPrices holds the LP range. LowerBound < UpperBound is not guaranteed.
type BoundPrices struct {
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// WellFormed reports whether spot lies strictly inside the range.
func (b BoundPrices) WellFormed(spot float64) bool {
	return b.LowerBound < spot && spot < b.UpperBound
}

// PnLSample is the evaluation of the position at one hypothetical price.
type PnLSample struct {
	HypotheticalPrice float64 `json:"price"`
	Regime            Regime  `json:"regime"`
	OptionPnL         float64 `json:"option_pnl"`
	UnderlyingPnL     float64 `json:"underlying_pnl"`
	USDLegPnL         float64 `json:"usd_pnl"`
	Ratio             float64 `json:"ratio"`
	NormalizedPnL     float64 `json:"normalized_pnl"`
}

// TotalPnL is the un-normalized sum of the three legs.
func (s PnLSample) TotalPnL() float64 {
	return s.OptionPnL + s.UnderlyingPnL + s.USDLegPnL
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
