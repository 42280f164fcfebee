package hedge

import (
	"fmt"
	"math"
)

// Config selects the formula variants. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	BreakEvenWeight BreakEvenWeight
	TieBreak        TieBreak
	Partition       Partition
}

// DefaultConfig pairs the double-premium upper bound with the four-regime,
// first-match layout.
func DefaultConfig() Config {
	return Config{
		BreakEvenWeight: WeightDouble,
		TieBreak:        TieBreakFirstMatch,
		Partition:       PartitionFourRegime,
	}
}

// Validate rejects unknown variants.
func (c Config) Validate() error {
	if !c.BreakEvenWeight.Valid() {
		return fmt.Errorf("%w: unknown break-even weight %d", ErrInvalidParameters, int(c.BreakEvenWeight))
	}
	if c.TieBreak != TieBreakFirstMatch && c.TieBreak != TieBreakHalfOpen {
		return fmt.Errorf("%w: unknown tie-break policy %d", ErrInvalidParameters, int(c.TieBreak))
	}
	if c.Partition != PartitionFourRegime && c.Partition != PartitionStrikeOnly {
		return fmt.Errorf("%w: unknown partition %d", ErrInvalidParameters, int(c.Partition))
	}
	return nil
}

// legs is the per-regime breakdown before normalization.
type legs struct {
	option     float64
	underlying float64
	usd        float64
	ratio      float64
}

type legFunc func(p PositionParameters, b BoundPrices, price float64) legs

// strategies holds one formula set per regime.
var strategies = map[Regime]legFunc{
	RegimeBearish:              bearishLegs,
	RegimeUnderStrikeAboveSpot: underStrikeAboveSpotLegs,
	RegimeOverStrikeBelowSpot:  overStrikeBelowSpotLegs,
	RegimeBullish:              bullishLegs,
}

func putInTheMoney(p PositionParameters, price float64) float64 {
	return (p.StrikePrice - price - p.OptionPremium) * OptionUnits
}

func putOutOfTheMoney(p PositionParameters) float64 {
	return -p.OptionPremium * OptionUnits
}

// midpointGain is the LP gain from spot to the average of price and spot.
func midpointGain(price, spot float64) float64 {
	return (price+spot)/2 - spot
}

func ratioTo(price, spot, bound float64) float64 {
	return math.Abs((price - spot) / (bound - spot))
}

func bearishLegs(p PositionParameters, b BoundPrices, price float64) legs {
	spot := p.SpotPrice
	if price <= b.LowerBound {
		// Fully exited to USD at the lower bound.
		return legs{
			option:     putInTheMoney(p, price),
			underlying: price - spot,
			usd:        price - (b.LowerBound+spot)/2,
			ratio:      1,
		}
	}
	ratio := ratioTo(price, spot, b.LowerBound)
	return legs{
		option:     putInTheMoney(p, price),
		underlying: price - spot,
		usd:        midpointGain(price, spot) * ratio,
		ratio:      ratio,
	}
}

func underStrikeAboveSpotLegs(p PositionParameters, b BoundPrices, price float64) legs {
	ratio := ratioTo(price, p.SpotPrice, b.UpperBound)
	return legs{
		option:     putInTheMoney(p, price),
		underlying: midpointGain(price, p.SpotPrice) * ratio,
		ratio:      ratio,
	}
}

func overStrikeBelowSpotLegs(p PositionParameters, b BoundPrices, price float64) legs {
	ratio := ratioTo(price, p.SpotPrice, b.LowerBound)
	return legs{
		option:     putOutOfTheMoney(p),
		underlying: price - p.SpotPrice,
		usd:        midpointGain(price, p.SpotPrice) * ratio,
		ratio:      ratio,
	}
}

func bullishLegs(p PositionParameters, b BoundPrices, price float64) legs {
	spot := p.SpotPrice
	if price >= b.UpperBound {
		// Fully converted to USD at the upper bound; gains are capped.
		return legs{
			option:     putOutOfTheMoney(p),
			underlying: midpointGain(b.UpperBound, spot),
			ratio:      1,
		}
	}
	ratio := ratioTo(price, spot, b.UpperBound)
	return legs{
		option:     putOutOfTheMoney(p),
		underlying: midpointGain(price, spot) * ratio,
		ratio:      ratio,
	}
}

// Engine evaluates the hedged position. It is immutable and safe for
// concurrent use.
type Engine struct {
	cfg        Config
	classifier Classifier
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		classifier: Classifier{TieBreak: cfg.TieBreak, Partition: cfg.Partition},
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Bounds derives the range with the engine's break-even weight.
func (e *Engine) Bounds(p PositionParameters) (BoundPrices, error) {
	return Bounds(p, e.cfg.BreakEvenWeight)
}

// Classify returns the regime the engine would use for price.
func (e *Engine) Classify(p PositionParameters, b BoundPrices, price float64) Regime {
	return e.classifier.Classify(price, p.StrikePrice, p.SpotPrice, b.LowerBound)
}

// Evaluate computes the PnL sample at price. The bounds are taken as given
// so callers can evaluate many prices against one range.
func (e *Engine) Evaluate(p PositionParameters, b BoundPrices, price float64) (PnLSample, error) {
	if err := p.Validate(); err != nil {
		return PnLSample{}, err
	}
	if err := checkBounds(p, b); err != nil {
		return PnLSample{}, err
	}
	if !isFinite(price) {
		return PnLSample{}, fmt.Errorf("%w: hypothetical price %v is not finite", ErrInvalidParameters, price)
	}

	regime := e.Classify(p, b, price)
	l := strategies[regime](p, b, price)

	return PnLSample{
		HypotheticalPrice: price,
		Regime:            regime,
		OptionPnL:         l.option,
		UnderlyingPnL:     l.underlying,
		USDLegPnL:         l.usd,
		Ratio:             l.ratio,
		NormalizedPnL:     (l.option + l.underlying + l.usd) / p.Notional(),
	}, nil
}

// EvaluateAt derives the bounds and evaluates a single price.
func (e *Engine) EvaluateAt(p PositionParameters, price float64) (PnLSample, error) {
	b, err := e.Bounds(p)
	if err != nil {
		return PnLSample{}, err
	}
	return e.Evaluate(p, b, price)
}

func checkBounds(p PositionParameters, b BoundPrices) error {
	if !isFinite(b.LowerBound) || !isFinite(b.UpperBound) {
		return fmt.Errorf("%w: bounds [%v, %v] are not finite", ErrInvalidParameters, b.LowerBound, b.UpperBound)
	}
	if b.LowerBound == p.SpotPrice {
		return fmt.Errorf("%w: lower bound equals spot %v", ErrDegenerateBounds, p.SpotPrice)
	}
	if b.UpperBound == p.SpotPrice {
		return fmt.Errorf("%w: upper bound equals spot %v", ErrDegenerateBounds, p.SpotPrice)
	}
	return nil
}
