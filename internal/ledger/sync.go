package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/instrument"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

var (
	minDerivedOptionPrice = decimal.NewFromFloat(0.01)
	maxDerivedOptionPrice = decimal.NewFromInt(1000)
)

// SyncPortfolio stores broker-supplied account totals. These are the
// authoritative figures; locally derived totals only bridge the latency
// between syncs.
func (l *Ledger) SyncPortfolio(p models.Portfolio) {
	l.Update(func(tx *Tx) error {
		tx.SetPortfolio(p)
		return nil
	})
}

// ReplaceAllPositions swaps the position tables for an authoritative broker
// snapshot in one transaction. This is the only path that creates positions
// without trades; rows with no symbol or zero quantity are dropped.
func (l *Ledger) ReplaceAllPositions(positions []models.Position, options []models.OptionPosition) {
	l.Update(func(tx *Tx) error {
		l.positions = make(map[string]models.Position, len(positions))
		l.options = make(map[string]models.OptionPosition, len(options))
		for _, p := range positions {
			p.Symbol = instrument.NormalizeSymbol(p.Symbol)
			if p.Symbol == "" || p.Quantity.IsZero() {
				continue
			}
			if p.CurrentPrice.IsZero() {
				p.CurrentPrice = p.AverageCost
			}
			tx.SetPosition(p)
		}
		for _, o := range options {
			o.Symbol = instrument.NormalizeSymbol(o.Symbol)
			if o.Symbol == "" || o.Quantity.IsZero() {
				continue
			}
			if o.Multiplier.IsZero() {
				o.Multiplier = defaultOptionMultiplier
			}
			if o.Key == "" {
				o.Key = instrument.OptionKey(o.Symbol, o.Right, o.Strike, o.Expiration, o.LocalSymbol, o.ConID)
			}
			normalizeOptionFromMarketValue(&o)
			tx.SetOptionPosition(o)
		}
		return nil
	})
}

// normalizeOptionFromMarketValue derives the per-share price from the
// broker's market value when available. The broker's per-share mark is
// sometimes the total contract value instead; the derived price is trusted
// only inside a sane per-share range.
func normalizeOptionFromMarketValue(o *models.OptionPosition) {
	if o.MarketValue == nil || o.Quantity.IsZero() || o.Multiplier.Sign() <= 0 {
		if o.MarketValue == nil {
			mv := o.CurrentPrice.Mul(o.Quantity).Mul(o.Multiplier)
			o.MarketValue = &mv
		}
		return
	}
	derived := o.MarketValue.Div(o.Quantity.Mul(o.Multiplier)).Abs()
	if derived.GreaterThanOrEqual(minDerivedOptionPrice) && derived.LessThanOrEqual(maxDerivedOptionPrice) {
		o.CurrentPrice = derived
	}
}
