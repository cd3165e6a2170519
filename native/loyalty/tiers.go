package loyalty

import "math/big"

// Tier enumerates the loyalty ladder. Zero means the account has not crossed
// the first spend threshold yet.
type Tier uint8

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
	TierDiamond
)

// String returns the canonical lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierDiamond:
		return "diamond"
	default:
		return "none"
	}
}

// Valid reports whether the tier is one of the four grantable tiers.
func (t Tier) Valid() bool { return t >= TierBronze && t <= TierDiamond }

// Cumulative-spend breakpoints in payment-token base units (six implied
// decimals). Bronze is 0.10 of the token.
var (
	thresholdBronze  = big.NewInt(100_000)
	thresholdSilver  = big.NewInt(1_000_000)
	thresholdGold    = big.NewInt(5_000_000)
	thresholdDiamond = big.NewInt(10_000_000)
)

// ThresholdSet reports the fixed tier breakpoints.
type ThresholdSet struct {
	Bronze  *big.Int `json:"bronze"`
	Silver  *big.Int `json:"silver"`
	Gold    *big.Int `json:"gold"`
	Diamond *big.Int `json:"diamond"`
}

// Thresholds returns a copy of the fixed cumulative-spend breakpoints.
func Thresholds() ThresholdSet {
	return ThresholdSet{
		Bronze:  new(big.Int).Set(thresholdBronze),
		Silver:  new(big.Int).Set(thresholdSilver),
		Gold:    new(big.Int).Set(thresholdGold),
		Diamond: new(big.Int).Set(thresholdDiamond),
	}
}

// TierForSpend resolves the highest tier whose threshold the supplied
// lifetime spend meets.
func TierForSpend(total *big.Int) Tier {
	if total == nil {
		return TierNone
	}
	switch {
	case total.Cmp(thresholdDiamond) >= 0:
		return TierDiamond
	case total.Cmp(thresholdGold) >= 0:
		return TierGold
	case total.Cmp(thresholdSilver) >= 0:
		return TierSilver
	case total.Cmp(thresholdBronze) >= 0:
		return TierBronze
	default:
		return TierNone
	}
}
