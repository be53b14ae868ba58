package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// nearZero guards the external-unrealized preference: a stale non-zero
// broker figure must not mask a legitimately zero local one, and vice versa.
var nearZero = decimal.NewFromFloat(0.0001)

var percent = decimal.NewFromInt(100)

// Performance is the reconciled portfolio-level view.
type Performance struct {
	TotalNetLiq    decimal.Decimal `json:"total_net_liq"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
}

// PortfolioPerformance derives net liquidation and unrealized return over
// the full position tables. Broker-supplied totals take precedence when
// present and non-zero; the local sums bridge the latency between
// authoritative syncs.
func PortfolioPerformance(portfolio models.Portfolio, positions []models.Position, options []models.OptionPosition) Performance {
	cash := portfolio.Cash
	positionsValue := decimal.Zero
	totalCost := decimal.Zero
	unrealized := decimal.Zero

	for i := range positions {
		pos := &positions[i]
		price := StockPrice(pos)
		positionsValue = positionsValue.Add(pos.Quantity.Mul(price))
		totalCost = totalCost.Add(pos.Quantity.Mul(pos.AverageCost))
		unrealized = unrealized.Add(price.Sub(pos.AverageCost).Mul(pos.Quantity))
	}

	optionValue := decimal.Zero
	for i := range options {
		opt := &options[i]
		if opt.Quantity.IsZero() {
			continue
		}
		multiplier := optionMultiplier(opt)
		price := OptionPrice(opt)
		optionValue = optionValue.Add(OptionMarketValue(opt))
		totalCost = totalCost.Add(opt.Quantity.Abs().Mul(opt.AverageCost).Mul(multiplier))
		unrealized = unrealized.Add(price.Sub(opt.AverageCost).Mul(opt.Quantity).Mul(multiplier))
	}

	calculatedNetLiq := cash.Add(positionsValue).Add(optionValue)

	hasExternalNetLiq := !portfolio.NetLiq.IsZero()
	netLiq := calculatedNetLiq
	if hasExternalNetLiq {
		netLiq = portfolio.NetLiq
	}

	finalUnrealized := unrealized
	if hasExternalNetLiq && portfolio.UnrealizedPnL != nil {
		external := *portfolio.UnrealizedPnL
		if !external.IsZero() || unrealized.Abs().LessThan(nearZero) {
			finalUnrealized = external
		}
	}

	returnPct := decimal.Zero
	if totalCost.Sign() > 0 {
		returnPct = finalUnrealized.Div(totalCost).Mul(percent)
	}

	return Performance{
		TotalNetLiq:    netLiq,
		TotalReturn:    finalUnrealized,
		TotalReturnPct: returnPct,
	}
}
