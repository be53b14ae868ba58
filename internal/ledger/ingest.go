package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/instrument"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

var defaultOptionMultiplier = decimal.NewFromInt(100)

// Ingest applies a batch of trade records to the position table inside one
// transaction. Malformed records and duplicates are skipped, never errors:
// one bad record must not abort the batch, and upstream delivery may retry.
// Returns the number of trades actually applied.
func (l *Ledger) Ingest(trades ...models.Trade) int {
	applied := 0
	l.Update(func(tx *Tx) error {
		for _, t := range trades {
			if tx.Ingest(t) {
				applied++
			}
		}
		return nil
	})
	return applied
}

// Ingest applies a single trade within the current transaction. It reports
// whether the trade was applied; duplicates and malformed records return
// false without touching the table.
func (tx *Tx) Ingest(t models.Trade) bool {
	if t.ID == "" {
		return false
	}
	if _, dup := tx.Trade(t.ID); dup {
		return true // idempotent re-delivery
	}
	key, isOption, ok := instrument.TradeKey(&t)
	if !ok {
		return false
	}
	signed := t.SignedQuantity()
	if signed.IsZero() || t.Price.IsNegative() {
		return false
	}

	t.Symbol = instrument.NormalizeSymbol(t.Symbol)
	tx.l.trades[t.ID] = t

	if isOption {
		tx.applyOptionTrade(key, t, signed)
	} else {
		tx.applyStockTrade(key, t, signed)
	}
	return true
}

func (tx *Tx) applyStockTrade(symbol string, t models.Trade, signed decimal.Decimal) {
	existing, ok := tx.Position(symbol)
	if !ok {
		// A sell with no position opens nothing; stock positions are never
		// shorted here.
		if signed.Sign() <= 0 {
			return
		}
		tx.SetPosition(models.Position{
			Symbol:       symbol,
			Quantity:     signed,
			AverageCost:  t.Price,
			CurrentPrice: t.Price,
		})
		return
	}

	newQty := existing.Quantity.Add(signed)
	if newQty.Sign() <= 0 {
		tx.DeletePosition(symbol)
		return
	}
	if signed.Sign() > 0 {
		existing.AverageCost = weightedAverage(existing.Quantity, existing.AverageCost, signed, t.Price, newQty)
	}
	// Realized P&L on the shrinking side is the P&L engine's job; average
	// cost stays put on sells.
	existing.Quantity = newQty
	existing.CurrentPrice = t.Price
	tx.SetPosition(existing)
}

func (tx *Tx) applyOptionTrade(key string, t models.Trade, signed decimal.Decimal) {
	multiplier := resolveMultiplier(&t)

	existing, ok := tx.OptionPosition(key)
	if !ok {
		pos := models.OptionPosition{
			Key:          key,
			Symbol:       t.Symbol,
			Quantity:     signed,
			AverageCost:  t.Price,
			CurrentPrice: t.Price,
			Multiplier:   multiplier,
			Right:        t.Right,
			Strike:       t.Strike,
			Expiration:   t.Expiration,
			SecType:      t.SecType,
			LocalSymbol:  t.LocalSymbol,
			ConID:        t.ConID,
		}
		mv := t.Price.Mul(signed).Mul(multiplier)
		pos.MarketValue = &mv
		tx.SetOptionPosition(pos)
		return
	}

	newQty := existing.Quantity.Add(signed)
	if newQty.IsZero() {
		tx.DeleteOptionPosition(key)
		return
	}

	sameSign := existing.Quantity.Sign() == newQty.Sign()
	switch {
	case sameSign && newQty.Abs().GreaterThan(existing.Quantity.Abs()):
		existing.AverageCost = weightedAverage(existing.Quantity.Abs(), existing.AverageCost, signed.Abs(), t.Price, newQty.Abs())
	case sameSign:
		// Shrinking keeps the entry basis.
	default:
		// Crossing zero opens a fresh position at the trade price.
		existing.AverageCost = t.Price
	}
	existing.Quantity = newQty
	existing.CurrentPrice = t.Price
	mv := t.Price.Mul(newQty).Mul(existing.Multiplier)
	existing.MarketValue = &mv
	tx.SetOptionPosition(existing)
}

func weightedAverage(oldQty, oldAvg, deltaQty, price, newQty decimal.Decimal) decimal.Decimal {
	if newQty.IsZero() {
		return oldAvg
	}
	return oldQty.Mul(oldAvg).Add(deltaQty.Mul(price)).Div(newQty)
}

func resolveMultiplier(t *models.Trade) decimal.Decimal {
	if t.Multiplier != nil && !t.Multiplier.IsZero() {
		return *t.Multiplier
	}
	return defaultOptionMultiplier
}
