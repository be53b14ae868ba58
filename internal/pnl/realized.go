// Package pnl computes realized profit and loss by replaying the trade
// history through per-instrument FIFO lot matching.
package pnl

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/instrument"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

var (
	optionFallbackMultiplier = decimal.NewFromInt(100)
	equityMultiplier         = decimal.NewFromInt(1)
)

// Result is the realized P&L over one window. HasSells distinguishes "$0
// because nothing closed" from "$0 because gains offset losses".
type Result struct {
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	HasSells    bool            `json:"has_sells"`
}

// Summary covers the all-time, month-to-date and year-to-date windows.
type Summary struct {
	Total Result `json:"total"`
	Month Result `json:"month"`
	Year  Result `json:"year"`
}

// Event is a single realized P&L contribution: either a FIFO lot match or a
// commission charge. Events carry the date of the trade that triggered them,
// so period figures attribute each match to its closing date even when the
// lot was opened outside the window.
type Event struct {
	Key        string
	Date       time.Time
	Amount     decimal.Decimal
	Commission bool
}

type lot struct {
	quantity   decimal.Decimal
	price      decimal.Decimal
	multiplier decimal.Decimal
}

// CalculateRealized runs FIFO matching over the full trade list and returns
// the all-time realized figure.
func CalculateRealized(trades []models.Trade) Result {
	return windowResult(RealizedEvents(trades), trades, time.Time{})
}

// Summarize runs the matching once and derives the all-time, month-to-date
// and year-to-date figures from the resulting event stream.
func Summarize(trades []models.Trade, now time.Time) Summary {
	events := RealizedEvents(trades)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	return Summary{
		Total: windowResult(events, trades, time.Time{}),
		Month: windowResult(events, trades, monthStart),
		Year:  windowResult(events, trades, yearStart),
	}
}

// RealizedEvents replays the trade history through per-instrument FIFO lot
// matching. Trades are ordered by (date, id) so identical input sets produce
// identical results regardless of delivery order.
func RealizedEvents(trades []models.Trade) []Event {
	ordered := eligibleTrades(trades)
	lots := make(map[string][]lot)
	var events []Event

	for i := range ordered {
		t := &ordered[i]
		key, isOption, _ := instrument.TradeKey(t)
		signed := t.SignedQuantity()

		// Commission is always a cost, independent of direction.
		if !t.Commission.IsZero() {
			events = append(events, Event{Key: key, Date: t.Date, Amount: t.Commission.Abs().Neg(), Commission: true})
		}

		multiplier := equityMultiplier
		if isOption {
			multiplier = optionFallbackMultiplier
			if t.Multiplier != nil && !t.Multiplier.IsZero() {
				multiplier = *t.Multiplier
			}
		}

		queue := lots[key]
		remaining := signed
		for !remaining.IsZero() && len(queue) > 0 {
			front := &queue[0]
			if front.quantity.Sign() == remaining.Sign() {
				break
			}
			used := decimal.Min(remaining.Abs(), front.quantity.Abs())

			var amount decimal.Decimal
			if remaining.Sign() < 0 {
				// Selling out of a long lot.
				amount = t.Price.Sub(front.price).Mul(used).Mul(front.multiplier)
			} else {
				// Buying back a short lot.
				amount = front.price.Sub(t.Price).Mul(used).Mul(front.multiplier)
			}
			events = append(events, Event{Key: key, Date: t.Date, Amount: amount})

			if front.quantity.Sign() < 0 {
				front.quantity = front.quantity.Add(used)
				remaining = remaining.Sub(used)
			} else {
				front.quantity = front.quantity.Sub(used)
				remaining = remaining.Add(used)
			}
			if front.quantity.IsZero() {
				queue = queue[1:]
			}
		}
		if !remaining.IsZero() {
			queue = append(queue, lot{quantity: remaining, price: t.Price, multiplier: multiplier})
		}
		lots[key] = queue
	}
	return events
}

// eligibleTrades filters to trades with a recognized direction and a
// resolvable instrument key, ordered deterministically.
func eligibleTrades(trades []models.Trade) []models.Trade {
	ordered := make([]models.Trade, 0, len(trades))
	for i := range trades {
		t := trades[i]
		if !t.IsBuy() && !t.IsSell() {
			continue
		}
		if _, _, ok := instrument.TradeKey(&t); !ok {
			continue
		}
		if t.Quantity.IsZero() {
			continue
		}
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// windowResult sums the events dated at or after start (zero start means
// all-time). HasSells reflects selling activity dated inside the window.
func windowResult(events []Event, trades []models.Trade, start time.Time) Result {
	res := Result{RealizedPnL: decimal.Zero}
	for _, e := range events {
		if !start.IsZero() && e.Date.Before(start) {
			continue
		}
		res.RealizedPnL = res.RealizedPnL.Add(e.Amount)
	}
	for i := range trades {
		t := &trades[i]
		if !t.IsSell() || t.Quantity.IsZero() {
			continue
		}
		if _, _, ok := instrument.TradeKey(t); !ok {
			continue
		}
		if !start.IsZero() && t.Date.Before(start) {
			continue
		}
		res.HasSells = true
		break
	}
	return res
}
