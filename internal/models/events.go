package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is the broker execution event consumed from Kafka. Numeric
// fields arrive as strings and are parsed with decimal to avoid float drift.
type TradeEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Data      TradeEventData `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// TradeEventData is the payload of a TradeEvent.
type TradeEventData struct {
	OrderID      string `json:"order_id"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	Quantity     string `json:"quantity"`
	AveragePrice string `json:"average_price"`
	// Broker payloads are not uniform; some report filled size and price
	// under these names instead.
	Shares        string  `json:"shares,omitempty"`
	CumQty        string  `json:"cum_qty,omitempty"`
	AvgPrice      string  `json:"avg_price,omitempty"`
	TotalNotional string  `json:"total_notional"`
	Fees          string  `json:"fees"`
	SecType       string  `json:"sec_type,omitempty"`
	Right         string  `json:"right,omitempty"`
	Strike        string  `json:"strike,omitempty"`
	Expiration    string  `json:"expiration,omitempty"`
	Multiplier    string  `json:"multiplier,omitempty"`
	LocalSymbol   string  `json:"local_symbol,omitempty"`
	ConID         string  `json:"con_id,omitempty"`
	ExecutedAt    *string `json:"executed_at,omitempty"`
}

// MarketDataEvent is published after a reconciliation pass so downstream
// consumers can react to price movement without polling.
type MarketDataEvent struct {
	EventType      string          `json:"event_type"`
	Feed           string          `json:"feed"`
	UpdatedSymbols []string        `json:"updated_symbols"`
	NetLiq         decimal.Decimal `json:"net_liq"`
	Timestamp      time.Time       `json:"timestamp"`
}
