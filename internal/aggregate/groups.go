// Package aggregate derives display-ready views from the position tables:
// per-underlying groups and portfolio-level performance. Everything here is
// a pure derivation; nothing writes back to the ledger.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/instrument"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// SortMode selects the ordering of position groups. Value modes sort
// descending; symbol sorts ascending; yield modes sort descending with
// alphabetical tie-breaks.
type SortMode string

const (
	SortMarketValue   SortMode = "marketValue"
	SortDailyPnL      SortMode = "dailyPnL"
	SortCostBasis     SortMode = "costBasis"
	SortUnrealizedPnL SortMode = "unrealizedPnL"
	SortSymbol        SortMode = "symbol"
	SortCCYield       SortMode = "ccYield"
	SortCSPYield      SortMode = "cspYield"
)

var defaultMultiplier = decimal.NewFromInt(100)

// Group is the per-underlying rollup of a stock position and its option
// contracts.
type Group struct {
	Symbol        string                  `json:"symbol"`
	Stock         *models.Position        `json:"stock,omitempty"`
	Options       []models.OptionPosition `json:"options"`
	ContractCount decimal.Decimal         `json:"contract_count"`
	MarketValue   decimal.Decimal         `json:"market_value"`
	CostBasis     decimal.Decimal         `json:"cost_basis"`
	DailyPnL      decimal.Decimal         `json:"daily_pnl"`
	UnrealizedPnL decimal.Decimal         `json:"unrealized_pnl"`
	CCYield       *decimal.Decimal        `json:"cc_yield,omitempty"`
	CSPYield      *decimal.Decimal        `json:"csp_yield,omitempty"`
}

// GroupPositions groups stock and option positions by underlying symbol and
// sums market value, cost basis, daily P&L and unrealized P&L per group.
func GroupPositions(positions []models.Position, options []models.OptionPosition, mode SortMode) []Group {
	bySymbol := make(map[string]*Group)
	ensure := func(symbol string) *Group {
		g, ok := bySymbol[symbol]
		if !ok {
			g = &Group{Symbol: symbol, Options: []models.OptionPosition{}}
			bySymbol[symbol] = g
		}
		return g
	}

	for i := range positions {
		pos := positions[i]
		symbol := instrument.NormalizeSymbol(pos.Symbol)
		if symbol == "" {
			continue
		}
		g := ensure(symbol)
		g.Stock = &pos
		if pos.CC != nil && pos.CC.Yield != nil {
			g.CCYield = pos.CC.Yield
		}
		if pos.CSP != nil && pos.CSP.Yield != nil {
			g.CSPYield = pos.CSP.Yield
		}

		price := StockPrice(&pos)
		close := closeOr(pos.ClosePrice, price)
		marketValue := pos.Quantity.Mul(price)
		cost := pos.Quantity.Mul(pos.AverageCost)

		g.MarketValue = g.MarketValue.Add(marketValue)
		g.CostBasis = g.CostBasis.Add(cost)
		g.DailyPnL = g.DailyPnL.Add(price.Sub(close).Mul(pos.Quantity))
		g.UnrealizedPnL = g.UnrealizedPnL.Add(marketValue.Sub(cost))
	}

	for i := range options {
		opt := options[i]
		symbol := instrument.NormalizeSymbol(opt.Symbol)
		if symbol == "" {
			continue
		}
		g := ensure(symbol)
		g.Options = append(g.Options, opt)
		g.ContractCount = g.ContractCount.Add(opt.Quantity.Abs())

		multiplier := optionMultiplier(&opt)
		marketValue := OptionMarketValue(&opt)
		price := OptionPrice(&opt)
		close := closeOr(opt.ClosePrice, price)
		cost := opt.AverageCost.Mul(opt.Quantity).Mul(multiplier)

		g.MarketValue = g.MarketValue.Add(marketValue)
		g.CostBasis = g.CostBasis.Add(cost)
		g.DailyPnL = g.DailyPnL.Add(price.Sub(close).Mul(opt.Quantity).Mul(multiplier))
		g.UnrealizedPnL = g.UnrealizedPnL.Add(marketValue.Sub(cost))
	}

	groups := make([]Group, 0, len(bySymbol))
	for _, g := range bySymbol {
		sortGroupOptions(g.Options)
		groups = append(groups, *g)
	}
	sortGroups(groups, mode)
	return groups
}

// StockPrice resolves the display price of a stock position: the broker
// mark when positive, then the live price, then the average cost.
func StockPrice(pos *models.Position) decimal.Decimal {
	if pos.MarketPrice != nil && pos.MarketPrice.Sign() > 0 {
		return *pos.MarketPrice
	}
	if pos.CurrentPrice.Sign() > 0 {
		return pos.CurrentPrice
	}
	return pos.AverageCost
}

// OptionPrice resolves the per-share price of an option position.
func OptionPrice(opt *models.OptionPosition) decimal.Decimal {
	if opt.CurrentPrice.Sign() > 0 {
		return opt.CurrentPrice
	}
	return opt.AverageCost
}

// OptionMarketValue prefers the broker-supplied market value when non-zero
// and falls back to price × quantity × multiplier.
func OptionMarketValue(opt *models.OptionPosition) decimal.Decimal {
	if opt.MarketValue != nil && !opt.MarketValue.IsZero() {
		return *opt.MarketValue
	}
	return OptionPrice(opt).Mul(opt.Quantity).Mul(optionMultiplier(opt))
}

func optionMultiplier(opt *models.OptionPosition) decimal.Decimal {
	if opt.Multiplier.IsZero() {
		return defaultMultiplier
	}
	return opt.Multiplier
}

func closeOr(close *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if close != nil && !close.IsZero() {
		return *close
	}
	return fallback
}

// sortGroupOptions orders a group's contracts puts first, then calls, then
// by expiration and strike.
func sortGroupOptions(options []models.OptionPosition) {
	rank := func(right string) int {
		switch right {
		case "P", "p":
			return 0
		case "C", "c":
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(options, func(i, j int) bool {
		ri, rj := rank(options[i].Right), rank(options[j].Right)
		if ri != rj {
			return ri < rj
		}
		ei := instrument.NormalizeExpiration(options[i].Expiration)
		ej := instrument.NormalizeExpiration(options[j].Expiration)
		if ei != ej {
			return ei < ej
		}
		si, sj := decimal.Zero, decimal.Zero
		if options[i].Strike != nil {
			si = *options[i].Strike
		}
		if options[j].Strike != nil {
			sj = *options[j].Strike
		}
		return si.LessThan(sj)
	})
}

func sortGroups(groups []Group, mode SortMode) {
	byValueDesc := func(value func(*Group) decimal.Decimal) func(i, j int) bool {
		return func(i, j int) bool {
			return value(&groups[i]).GreaterThan(value(&groups[j]))
		}
	}
	switch mode {
	case SortDailyPnL:
		sort.SliceStable(groups, byValueDesc(func(g *Group) decimal.Decimal { return g.DailyPnL }))
	case SortCostBasis:
		sort.SliceStable(groups, byValueDesc(func(g *Group) decimal.Decimal { return g.CostBasis }))
	case SortUnrealizedPnL:
		sort.SliceStable(groups, byValueDesc(func(g *Group) decimal.Decimal { return g.UnrealizedPnL }))
	case SortSymbol:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Symbol < groups[j].Symbol })
	case SortCCYield:
		sortByYield(groups, func(g *Group) *decimal.Decimal { return g.CCYield })
	case SortCSPYield:
		sortByYield(groups, func(g *Group) *decimal.Decimal { return g.CSPYield })
	default: // SortMarketValue
		sort.SliceStable(groups, byValueDesc(func(g *Group) decimal.Decimal { return g.MarketValue }))
	}
}

// sortByYield orders descending by yield with missing yields last; ties
// break alphabetically.
func sortByYield(groups []Group, yield func(*Group) *decimal.Decimal) {
	sort.SliceStable(groups, func(i, j int) bool {
		yi, yj := yield(&groups[i]), yield(&groups[j])
		switch {
		case yi == nil && yj == nil:
			return groups[i].Symbol < groups[j].Symbol
		case yi == nil:
			return false
		case yj == nil:
			return true
		case yi.Equal(*yj):
			return groups[i].Symbol < groups[j].Symbol
		default:
			return yi.GreaterThan(*yj)
		}
	})
}
