package marketdata

import "github.com/shopspring/decimal"

// FilterConfig holds the tunables of the volatility-scaled price acceptance
// filter. The defaults match production behavior; keep them configurable so
// the thresholds can be tuned and tested independently of the algorithm.
type FilterConfig struct {
	// BasePct is the minimum relative change accepted for any symbol.
	BasePct decimal.Decimal
	// IVCoefficient scales the IV-rank fraction into the threshold.
	IVCoefficient decimal.Decimal
	// UnknownIVVolPct is the volatility term used when IV rank is unknown.
	UnknownIVVolPct decimal.Decimal
	// BetaMin and BetaMax clamp the |beta| factor.
	BetaMin decimal.Decimal
	BetaMax decimal.Decimal
}

// DefaultFilterConfig returns the production thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		BasePct:         decimal.NewFromFloat(0.0005),
		IVCoefficient:   decimal.NewFromFloat(0.002),
		UnknownIVVolPct: decimal.NewFromFloat(0.001),
		BetaMin:         decimal.NewFromFloat(0.5),
		BetaMax:         decimal.NewFromInt(2),
	}
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ShouldApplyPriceUpdate decides whether an incoming price is a significant
// enough move to overwrite the stored one. With no valid stored price every
// update is accepted. Otherwise the relative change must meet a threshold of
// (base + ivCoeff × ivRankFraction) × |beta| clamped to [betaMin, betaMax]:
// jitter is suppressed on low-volatility names while high-volatility ones
// track faster.
func (c FilterConfig) ShouldApplyPriceUpdate(current, next decimal.Decimal, ivRank, beta *decimal.Decimal) bool {
	if current.Sign() <= 0 {
		return true
	}
	if next.Sign() <= 0 {
		return false
	}

	volPct := c.UnknownIVVolPct
	if ivRank != nil {
		fraction := clamp(*ivRank, decimal.Zero, hundred).Div(hundred)
		volPct = c.IVCoefficient.Mul(fraction)
	}
	betaFactor := one
	if beta != nil {
		betaFactor = clamp(beta.Abs(), c.BetaMin, c.BetaMax)
	}
	threshold := c.BasePct.Add(volPct).Mul(betaFactor)
	deltaPct := next.Sub(current).Abs().Div(current)
	return deltaPct.GreaterThanOrEqual(threshold)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, lo), hi)
}
