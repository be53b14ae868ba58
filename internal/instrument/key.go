// Package instrument derives stable, collision-resistant identity keys for
// tradable instruments. The same logical instrument always resolves to the
// same key no matter which trade record triggered the lookup.
package instrument

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

const optionPrefix = "OPT:"

// NormalizeSymbol trims and uppercases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeExpiration collapses an expiration date to its 8-digit form
// (20260206) when possible, otherwise returns the input unchanged.
func NormalizeExpiration(value string) string {
	if value == "" {
		return ""
	}
	compact := strings.ReplaceAll(value, "-", "")
	if len(compact) == 8 {
		return compact
	}
	return value
}

// IsOption reports whether the trade describes an option contract: a
// CC/CSP strategy tag, an OPT security type, or any of right, strike,
// expiration present. An explicit STK security type is never an option.
func IsOption(t *models.Trade) bool {
	switch t.Type {
	case models.TradeTypeCoveredCall, models.TradeTypeCashSecuredPut:
		return true
	}
	switch strings.ToUpper(t.SecType) {
	case models.SecTypeStock:
		return false
	case models.SecTypeOption:
		return true
	}
	return t.Right != "" || t.Strike != nil || t.Expiration != ""
}

// TradeKey resolves the instrument key for a trade. Equities resolve to the
// bare uppercased symbol. Options prefer the broker contract ID, then the
// broker local symbol, then a synthesized underlying:right:strike:expiration
// tuple. Returns ok=false when the record carries no symbol.
func TradeKey(t *models.Trade) (key string, isOption bool, ok bool) {
	symbol := NormalizeSymbol(t.Symbol)
	if symbol == "" {
		return "", false, false
	}
	if !IsOption(t) {
		return symbol, false, true
	}
	return OptionKey(symbol, t.Right, t.Strike, t.Expiration, t.LocalSymbol, t.ConID), true, true
}

// OptionKey resolves the instrument key for an option contract using the
// same preference order as TradeKey: broker contract ID, broker local
// symbol, synthesized tuple.
func OptionKey(symbol, right string, strike *decimal.Decimal, expiration, localSymbol string, conID int64) string {
	if conID != 0 {
		return optionPrefix + strconv.FormatInt(conID, 10)
	}
	if local := strings.TrimSpace(localSymbol); local != "" {
		return optionPrefix + local
	}
	r := strings.ToUpper(strings.TrimSpace(right))
	if r == "" {
		r = "X"
	}
	strikePart := "0"
	if strike != nil {
		strikePart = strike.String()
	}
	exp := NormalizeExpiration(expiration)
	if exp == "" {
		exp = "na"
	}
	return optionPrefix + NormalizeSymbol(symbol) + ":" + r + ":" + strikePart + ":" + exp
}
