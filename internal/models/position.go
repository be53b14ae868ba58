package models

import (
	"github.com/shopspring/decimal"
)

// Position represents a current stock holding for one underlying symbol.
// A position row exists only while quantity is non-zero; closing to zero
// removes the row entirely.
type Position struct {
	Symbol       string           `json:"symbol"`
	Quantity     decimal.Decimal  `json:"quantity"`
	AverageCost  decimal.Decimal  `json:"average_cost"`
	CurrentPrice decimal.Decimal  `json:"current_price"`
	ClosePrice   *decimal.Decimal `json:"close_price,omitempty"`

	// Authoritative broker-supplied figures, preferred over locally derived
	// values when present.
	MarketPrice *decimal.Decimal `json:"market_price,omitempty"`
	MarketValue *decimal.Decimal `json:"market_value,omitempty"`
	CostBasis   *decimal.Decimal `json:"cost_basis,omitempty"`

	// Volatility inputs for the price acceptance filter.
	IVRank *decimal.Decimal `json:"iv_rank,omitempty"`
	Beta   *decimal.Decimal `json:"beta,omitempty"`

	CompanyName string `json:"company_name,omitempty"`

	// Attached wheel-strategy leg quotes for this underlying. Nil means no
	// leg is currently attached.
	CC  *LegQuote `json:"cc,omitempty"`
	CSP *LegQuote `json:"csp,omitempty"`
}

// LegQuote is the derived quote data for one wheel leg (covered call or
// cash-secured put) attached to an underlying position. All fields are set
// together and removed together; partial leg states are disallowed.
type LegQuote struct {
	Yield         *decimal.Decimal `json:"yield,omitempty"`
	Premium       *decimal.Decimal `json:"premium,omitempty"`
	PremiumSource string           `json:"premium_source,omitempty"`
	Strike        *decimal.Decimal `json:"strike,omitempty"`
	Expiration    string           `json:"expiration,omitempty"`
	WinProb       *decimal.Decimal `json:"win_prob,omitempty"`
	Delta         *decimal.Decimal `json:"delta,omitempty"`
	Gamma         *decimal.Decimal `json:"gamma,omitempty"`
	Theta         *decimal.Decimal `json:"theta,omitempty"`
	Vega          *decimal.Decimal `json:"vega,omitempty"`
}

// OptionPosition represents a held option contract, keyed by its instrument
// key. Negative quantity is a short (written) contract.
type OptionPosition struct {
	Key          string           `json:"key"`
	Symbol       string           `json:"symbol"`
	Quantity     decimal.Decimal  `json:"quantity"`
	AverageCost  decimal.Decimal  `json:"average_cost"`
	CurrentPrice decimal.Decimal  `json:"current_price"`
	ClosePrice   *decimal.Decimal `json:"close_price,omitempty"`
	MarketValue  *decimal.Decimal `json:"market_value,omitempty"`
	CostBasis    *decimal.Decimal `json:"cost_basis,omitempty"`

	Right       string           `json:"right,omitempty"`
	Strike      *decimal.Decimal `json:"strike,omitempty"`
	Expiration  string           `json:"expiration,omitempty"`
	Multiplier  decimal.Decimal  `json:"multiplier"`
	SecType     string           `json:"sec_type,omitempty"`
	LocalSymbol string           `json:"local_symbol,omitempty"`
	ConID       int64            `json:"con_id,omitempty"`
}

// Portfolio holds account-level totals. NetLiq is refreshed locally after
// every reconciliation pass; broker-supplied totals, when synced in, take
// precedence in derived views.
type Portfolio struct {
	Cash          decimal.Decimal  `json:"cash"`
	NetLiq        decimal.Decimal  `json:"net_liq"`
	BuyingPower   decimal.Decimal  `json:"buying_power"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	RealizedPnL   *decimal.Decimal `json:"realized_pnl,omitempty"`
}
