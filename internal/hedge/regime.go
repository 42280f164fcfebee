package hedge

import "fmt"

// Regime is the price band a hypothetical price falls into, relative to
// strike and spot.
type Regime int

const (
	// RegimeBearish: price at or under both strike and spot.
	RegimeBearish Regime = iota + 1
	// RegimeUnderStrikeAboveSpot: price between spot and strike, put in the money.
	RegimeUnderStrikeAboveSpot
	// RegimeOverStrikeBelowSpot: price between strike and spot, put out of the money.
	RegimeOverStrikeBelowSpot
	// RegimeBullish: price at or over both strike and spot.
	RegimeBullish
)

var regimeNames = map[Regime]string{
	RegimeBearish:              "bearish",
	RegimeUnderStrikeAboveSpot: "under_strike_above_spot",
	RegimeOverStrikeBelowSpot:  "over_strike_below_spot",
	RegimeBullish:              "bullish",
}

func (r Regime) String() string {
	if name, ok := regimeNames[r]; ok {
		return name
	}
	return fmt.Sprintf("regime(%d)", int(r))
}

// MarshalText encodes the regime by name.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a regime name.
func (r *Regime) UnmarshalText(text []byte) error {
	for k, v := range regimeNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown regime %q", string(text))
}

// TieBreak decides which regime owns a price that sits exactly on strike or spot.
type TieBreak int

const (
	// TieBreakFirstMatch uses inclusive guards on both sides and takes the
	// first regime in order 1..4. Ties resolve towards the lower regime.
	TieBreakFirstMatch TieBreak = iota
	// TieBreakHalfOpen partitions at each threshold; the threshold itself
	// belongs to the regime above it.
	TieBreakHalfOpen
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakFirstMatch:
		return "first_match"
	case TieBreakHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("tiebreak(%d)", int(t))
	}
}

// ParseTieBreak parses the config spelling of a tie-break policy.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "first_match":
		return TieBreakFirstMatch, nil
	case "half_open":
		return TieBreakHalfOpen, nil
	}
	return 0, fmt.Errorf("%w: unknown tie-break policy %q", ErrInvalidParameters, s)
}

// Partition selects the regime layout.
type Partition int

const (
	// PartitionFourRegime splits on both strike and spot.
	PartitionFourRegime Partition = iota
	// PartitionStrikeOnly lets strike alone pick the side: below strike the
	// spot split still applies, above strike the bullish formulas are used
	// whatever the spot. A price between strike and a higher spot is then
	// scaled against the upper bound, so Ratio can exceed 1 there even with
	// well-formed bounds.
	PartitionStrikeOnly
)

func (p Partition) String() string {
	switch p {
	case PartitionFourRegime:
		return "four_regime"
	case PartitionStrikeOnly:
		return "strike_only"
	default:
		return fmt.Sprintf("partition(%d)", int(p))
	}
}

// ParsePartition parses the config spelling of a partition.
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "", "four_regime":
		return PartitionFourRegime, nil
	case "strike_only":
		return PartitionStrikeOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown partition %q", ErrInvalidParameters, s)
}

// Classifier maps a hypothetical price onto a regime.
type Classifier struct {
	TieBreak  TieBreak
	Partition Partition
}

// Classify returns the regime for price. lowerBound is consulted only by
// PartitionStrikeOnly, where a price under the lower bound exits to the
// bearish regime before the spot split.
func (c Classifier) Classify(price, strike, spot, lowerBound float64) Regime {
	underStrike, overStrike := c.sides(price, strike)
	underSpot, overSpot := c.sides(price, spot)

	if c.Partition == PartitionStrikeOnly {
		switch {
		case !underStrike:
			return RegimeBullish
		case price <= lowerBound:
			return RegimeBearish
		case price >= spot:
			return RegimeUnderStrikeAboveSpot
		default:
			return RegimeBearish
		}
	}

	switch {
	case underStrike && underSpot:
		return RegimeBearish
	case underStrike && overSpot:
		return RegimeUnderStrikeAboveSpot
	case overStrike && underSpot:
		return RegimeOverStrikeBelowSpot
	default:
		return RegimeBullish
	}
}

// sides reports whether price counts as under and over threshold.
// Under first-match both can hold at equality; the switch order then
// decides.
func (c Classifier) sides(price, threshold float64) (under, over bool) {
	if c.TieBreak == TieBreakHalfOpen {
		return price < threshold, price >= threshold
	}
	return price <= threshold, price >= threshold
}
