package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// OptionLeg is one side of a wheel quote (covered call or cash-secured put)
// as delivered by the market data bridge.
type OptionLeg struct {
	Strike          *decimal.Decimal `json:"strike,omitempty"`
	Premium         *decimal.Decimal `json:"premium,omitempty"`
	AnnualizedYield *decimal.Decimal `json:"annualized_yield,omitempty"`
	Expiration      string           `json:"expiration,omitempty"`
	PremiumSource   string           `json:"premium_source,omitempty"`
	WinProb         *decimal.Decimal `json:"win_prob,omitempty"`
	Delta           *decimal.Decimal `json:"delta,omitempty"`
	Gamma           *decimal.Decimal `json:"gamma,omitempty"`
	Theta           *decimal.Decimal `json:"theta,omitempty"`
	Vega            *decimal.Decimal `json:"vega,omitempty"`
}

// LegPatch carries the tri-state leg field of a live snapshot: a key that is
// absent on the wire leaves existing leg data untouched, an explicit null
// removes the leg, and a value replaces it.
type LegPatch struct {
	Present bool
	Leg     *OptionLeg
}

// Set returns a patch that replaces the leg.
func SetLeg(leg *OptionLeg) LegPatch { return LegPatch{Present: true, Leg: leg} }

// RemoveLeg returns a patch that deletes the leg.
func RemoveLeg() LegPatch { return LegPatch{Present: true} }

// LiveOptionSnapshot is a per-symbol update from the live option feed:
// an underlying price plus optional cc/csp leg patches.
type LiveOptionSnapshot struct {
	Symbol       string
	CurrentPrice *decimal.Decimal
	CC           LegPatch
	CSP          LegPatch
}

type liveOptionSnapshotWire struct {
	Symbol       string           `json:"symbol"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	CC           json.RawMessage  `json:"cc,omitempty"`
	CSP          json.RawMessage  `json:"csp,omitempty"`
}

// UnmarshalJSON keeps the absent-vs-null distinction for the cc and csp keys.
func (s *LiveOptionSnapshot) UnmarshalJSON(data []byte) error {
	var wire liveOptionSnapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.Symbol = wire.Symbol
	s.CurrentPrice = wire.CurrentPrice
	var err error
	if s.CC, err = unmarshalLegPatch(wire.CC); err != nil {
		return err
	}
	if s.CSP, err = unmarshalLegPatch(wire.CSP); err != nil {
		return err
	}
	return nil
}

// MarshalJSON emits cc/csp only when the patch is present, writing an
// explicit null for a removal.
func (s LiveOptionSnapshot) MarshalJSON() ([]byte, error) {
	wire := liveOptionSnapshotWire{
		Symbol:       s.Symbol,
		CurrentPrice: s.CurrentPrice,
	}
	var err error
	if wire.CC, err = marshalLegPatch(s.CC); err != nil {
		return nil, err
	}
	if wire.CSP, err = marshalLegPatch(s.CSP); err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

func unmarshalLegPatch(raw json.RawMessage) (LegPatch, error) {
	if raw == nil {
		return LegPatch{}, nil
	}
	if string(raw) == "null" {
		return RemoveLeg(), nil
	}
	var leg OptionLeg
	if err := json.Unmarshal(raw, &leg); err != nil {
		return LegPatch{}, err
	}
	return SetLeg(&leg), nil
}

func marshalLegPatch(p LegPatch) (json.RawMessage, error) {
	if !p.Present {
		return nil, nil
	}
	if p.Leg == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(p.Leg)
}

// OpportunityQuote is a price-only update from the opportunity feed.
type OpportunityQuote struct {
	Symbol       string           `json:"symbol"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
}

// SnapshotResult is returned from every reconciliation call so the caller
// can decide whether to notify or log.
type SnapshotResult struct {
	UpdatedSymbols []string        `json:"updated_symbols"`
	NetLiq         decimal.Decimal `json:"net_liq"`
}
