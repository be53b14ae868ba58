package marketdata

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestShouldApplyPriceUpdate(t *testing.T) {
	cfg := DefaultFilterConfig()

	t.Run("no stored price accepts anything", func(t *testing.T) {
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(0), dec(150), nil, nil))
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(-1), dec(150), nil, nil))
	})

	t.Run("non-positive incoming price is rejected", func(t *testing.T) {
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(150), dec(0), nil, nil))
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(150), dec(-1), nil, nil))
	})

	t.Run("unknown IV uses the fixed volatility term", func(t *testing.T) {
		// Threshold is (0.0005 + 0.001) × 1 = 0.15%.
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.1), nil, nil))
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.15), nil, nil))
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(99.85), nil, nil))
	})

	t.Run("high IV rank demands a bigger move", func(t *testing.T) {
		// Threshold is (0.0005 + 0.002×1) × 1 = 0.25%.
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), decPtr(100), nil))
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.25), decPtr(100), nil))
	})

	t.Run("zero IV rank leaves only the base threshold", func(t *testing.T) {
		// Threshold is 0.05%.
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.05), decPtr(0), nil))
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.04), decPtr(0), nil))
	})

	t.Run("IV rank outside 0-100 is clamped", func(t *testing.T) {
		assert.Equal(t,
			cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), decPtr(100), nil),
			cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), decPtr(250), nil))
		assert.Equal(t,
			cfg.ShouldApplyPriceUpdate(dec(100), dec(100.05), decPtr(0), nil),
			cfg.ShouldApplyPriceUpdate(dec(100), dec(100.05), decPtr(-10), nil))
	})

	t.Run("beta scales the threshold", func(t *testing.T) {
		// Base unknown-IV threshold is 0.15%; beta 2 doubles it to 0.3%.
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), nil, decPtr(1)))
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), nil, decPtr(2)))
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.3), nil, decPtr(2)))
	})

	t.Run("beta is clamped and sign-insensitive", func(t *testing.T) {
		// |beta| below 0.5 clamps to 0.5: threshold 0.075%.
		assert.True(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.08), nil, decPtr(0.1)))
		assert.False(t, cfg.ShouldApplyPriceUpdate(dec(100), dec(100.07), nil, decPtr(0.1)))
		assert.Equal(t,
			cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), nil, decPtr(1.5)),
			cfg.ShouldApplyPriceUpdate(dec(100), dec(100.2), nil, decPtr(-1.5)))
	})

	t.Run("threshold rises monotonically with IV rank", func(t *testing.T) {
		next := dec(100.2)
		accepted := 0
		for _, iv := range []float64{0, 25, 50, 75, 100} {
			if cfg.ShouldApplyPriceUpdate(dec(100), next, decPtr(iv), nil) {
				accepted++
			}
		}
		// Once a rank rejects, every higher rank must also reject.
		for i, iv := range []float64{0, 25, 50, 75, 100} {
			got := cfg.ShouldApplyPriceUpdate(dec(100), next, decPtr(iv), nil)
			assert.Equal(t, i < accepted, got, "iv rank %v", iv)
		}
	})
}
