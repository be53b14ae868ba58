// Package marketdata reconciles external price and option quote snapshots
// against the position table. Each Apply call is one ledger transaction:
// the row updates and the net liquidation recompute commit as a unit.
package marketdata

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/instrument"
	"github.com/dfreeman-dev/wheel-ledger/internal/ledger"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

var defaultMultiplier = decimal.NewFromInt(100)

// Reconciler applies market snapshots to a ledger.
type Reconciler struct {
	ledger *ledger.Ledger
	filter FilterConfig
}

// NewReconciler wires a reconciler to its ledger. A zero FilterConfig is
// replaced by the production defaults.
func NewReconciler(l *ledger.Ledger, filter FilterConfig) *Reconciler {
	if filter.BasePct.IsZero() && filter.IVCoefficient.IsZero() {
		filter = DefaultFilterConfig()
	}
	return &Reconciler{ledger: l, filter: filter}
}

// ApplyOpportunityMarketData applies price-only quotes from the opportunity
// feed. Opportunity prices are treated as always fresh: no acceptance filter
// and no close-price bookkeeping. The first quote per symbol in the batch
// wins; symbols without an existing position are ignored.
func (r *Reconciler) ApplyOpportunityMarketData(quotes []models.OpportunityQuote) models.SnapshotResult {
	prices := make(map[string]decimal.Decimal)
	order := make([]string, 0, len(quotes))
	for _, q := range quotes {
		symbol := instrument.NormalizeSymbol(q.Symbol)
		if symbol == "" || q.CurrentPrice == nil {
			continue
		}
		if _, seen := prices[symbol]; seen {
			continue
		}
		prices[symbol] = *q.CurrentPrice
		order = append(order, symbol)
	}
	sort.Strings(order)

	result := models.SnapshotResult{UpdatedSymbols: []string{}}
	r.ledger.Update(func(tx *ledger.Tx) error {
		for _, symbol := range order {
			price := prices[symbol]
			if price.Sign() <= 0 {
				continue
			}
			existing, ok := tx.Position(symbol)
			if !ok {
				continue
			}
			if existing.CurrentPrice.Equal(price) {
				continue
			}
			existing.CurrentPrice = price
			tx.SetPosition(existing)
			result.UpdatedSymbols = append(result.UpdatedSymbols, symbol)
		}
		result.NetLiq = RefreshNetLiq(tx)
		return nil
	})
	return result
}

// ApplyLiveOptionMarketData applies live option snapshots: underlying price
// through the acceptance filter with close-price bookkeeping, plus tri-state
// cc/csp leg patches. Positions are never created here.
func (r *Reconciler) ApplyLiveOptionMarketData(snapshots []models.LiveOptionSnapshot) models.SnapshotResult {
	result := models.SnapshotResult{UpdatedSymbols: []string{}}
	r.ledger.Update(func(tx *ledger.Tx) error {
		for i := range snapshots {
			snap := &snapshots[i]
			symbol := instrument.NormalizeSymbol(snap.Symbol)
			if symbol == "" {
				continue
			}
			existing, ok := tx.Position(symbol)
			if !ok {
				continue
			}

			didUpdate := false
			if snap.CurrentPrice != nil && snap.CurrentPrice.Sign() > 0 {
				if r.applyPrice(&existing, *snap.CurrentPrice) {
					didUpdate = true
				}
			}
			if snap.CC.Present {
				existing.CC = legQuote(snap.CC.Leg)
				didUpdate = true
			}
			if snap.CSP.Present {
				existing.CSP = legQuote(snap.CSP.Leg)
				didUpdate = true
			}

			if didUpdate {
				tx.SetPosition(existing)
				result.UpdatedSymbols = append(result.UpdatedSymbols, symbol)
			}
		}
		result.NetLiq = RefreshNetLiq(tx)
		return nil
	})
	return result
}

// applyPrice runs the acceptance filter and maintains the close/current pair
// used by daily P&L. Reports whether the row changed.
func (r *Reconciler) applyPrice(pos *models.Position, next decimal.Decimal) bool {
	current := pos.CurrentPrice
	if !r.filter.ShouldApplyPriceUpdate(current, next, pos.IVRank, pos.Beta) {
		return false
	}
	if current.Equal(next) {
		return false
	}
	if current.Sign() > 0 {
		prev := current
		pos.ClosePrice = &prev
	} else if pos.ClosePrice == nil || pos.ClosePrice.IsZero() {
		// First observed price seeds a zero-change baseline rather than an
		// undefined one.
		seed := next
		pos.ClosePrice = &seed
	}
	pos.CurrentPrice = next
	return true
}

// legQuote converts a snapshot leg into the derived position fields. A nil
// leg removes everything; otherwise all fields are replaced together, so a
// partial leg state can never persist.
func legQuote(leg *models.OptionLeg) *models.LegQuote {
	if leg == nil {
		return nil
	}
	return &models.LegQuote{
		Yield:         leg.AnnualizedYield,
		Premium:       leg.Premium,
		PremiumSource: leg.PremiumSource,
		Strike:        leg.Strike,
		Expiration:    leg.Expiration,
		WinProb:       leg.WinProb,
		Delta:         leg.Delta,
		Gamma:         leg.Gamma,
		Theta:         leg.Theta,
		Vega:          leg.Vega,
	}
}

// RefreshNetLiq recomputes net liquidation value over the full position and
// option tables: cash plus stock market value plus option market value, the
// latter preferring the broker-supplied figure when non-zero. The result is
// written back to the portfolio row.
func RefreshNetLiq(tx *ledger.Tx) decimal.Decimal {
	portfolio := tx.Portfolio()
	total := portfolio.Cash

	for _, pos := range tx.Positions() {
		price := pos.CurrentPrice
		if price.Sign() <= 0 {
			price = pos.AverageCost
		}
		total = total.Add(pos.Quantity.Mul(price))
	}

	for _, opt := range tx.OptionPositions() {
		if opt.Quantity.IsZero() {
			continue
		}
		if opt.MarketValue != nil && !opt.MarketValue.IsZero() {
			total = total.Add(*opt.MarketValue)
			continue
		}
		multiplier := opt.Multiplier
		if multiplier.IsZero() {
			multiplier = defaultMultiplier
		}
		price := opt.CurrentPrice
		if price.Sign() <= 0 {
			price = opt.AverageCost
		}
		total = total.Add(opt.Quantity.Mul(price).Mul(multiplier))
	}

	portfolio.NetLiq = total
	tx.SetPortfolio(portfolio)
	return total
}
