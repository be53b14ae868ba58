package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade type constants
const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
	// Opening sells for wheel strategy legs: covered call and cash-secured put.
	TradeTypeCoveredCall    = "CC"
	TradeTypeCashSecuredPut = "CSP"
)

// Security type constants as reported by the broker
const (
	SecTypeStock  = "STK"
	SecTypeOption = "OPT"
)

// Trade is an immutable execution record. Trades are append-only: once
// ingested they are never mutated, and re-delivery of the same ID is a no-op.
type Trade struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Type       string          `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Date       time.Time       `json:"date"`

	// Option fields; zero values mean "not an option" unless SecType says so.
	SecType     string           `json:"sec_type,omitempty"`
	Right       string           `json:"right,omitempty"`
	Strike      *decimal.Decimal `json:"strike,omitempty"`
	Expiration  string           `json:"expiration,omitempty"`
	Multiplier  *decimal.Decimal `json:"multiplier,omitempty"`
	LocalSymbol string           `json:"local_symbol,omitempty"`
	ConID       int64            `json:"con_id,omitempty"`

	// Raw broker payload, kept for audit/display only. Core logic never
	// reads it after ingestion-time normalization.
	Raw map[string]any `json:"raw,omitempty"`
}

// IsBuy reports whether the trade adds quantity.
func (t *Trade) IsBuy() bool {
	return t.Type == TradeTypeBuy
}

// IsSell reports whether the trade removes quantity. CC and CSP are opening
// sells on the option side of a wheel strategy.
func (t *Trade) IsSell() bool {
	return t.Type == TradeTypeSell || t.Type == TradeTypeCoveredCall || t.Type == TradeTypeCashSecuredPut
}

// SignedQuantity returns the direction-signed quantity, or zero for trades
// with an unrecognized direction.
func (t *Trade) SignedQuantity() decimal.Decimal {
	switch {
	case t.IsBuy():
		return t.Quantity.Abs()
	case t.IsSell():
		return t.Quantity.Abs().Neg()
	default:
		return decimal.Zero
	}
}

// RawTrade is the audit-archive form of a broker execution, stored verbatim
// before any ledger normalization.
type RawTrade struct {
	ID         int              `json:"id"`
	OrderID    string           `json:"order_id"`
	Source     string           `json:"source"`
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      decimal.Decimal  `json:"price"`
	TotalCost  decimal.Decimal  `json:"total_cost"`
	Fees       decimal.Decimal  `json:"fees"`
	SecType    string           `json:"sec_type,omitempty"`
	Right      string           `json:"right,omitempty"`
	Strike     *decimal.Decimal `json:"strike,omitempty"`
	Expiration string           `json:"expiration,omitempty"`
	ConID      *int64           `json:"con_id,omitempty"`
	ExecutedAt time.Time        `json:"executed_at"`
	CreatedAt  time.Time        `json:"created_at"`
}
