// Package ledger holds the in-memory position table and the trade ingestion
// logic that maintains it. The ledger is an explicit handle passed to each
// operation; Update and View define the transaction boundary so a reader
// never observes a partially-applied batch.
package ledger

import (
	"sort"
	"sync"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// Ledger is the shared position table: stock positions keyed by symbol,
// option positions keyed by instrument key, the append-only trade record,
// and account-level totals. State lives in memory only; persistence is the
// host's responsibility.
type Ledger struct {
	mu        sync.RWMutex
	portfolio models.Portfolio
	positions map[string]models.Position
	options   map[string]models.OptionPosition
	trades    map[string]models.Trade
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		positions: make(map[string]models.Position),
		options:   make(map[string]models.OptionPosition),
		trades:    make(map[string]models.Trade),
	}
}

// Tx is the unit of work for one ledger operation. All mutations made
// through a Tx become visible to readers atomically when Update returns.
type Tx struct {
	l *Ledger
}

// Update runs fn as the single writer. Mutations are applied in place under
// the write lock, so the whole batch commits as one unit.
func (l *Ledger) Update(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(&Tx{l: l})
}

// View runs fn with a consistent read-only view of the table.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(&Tx{l: l})
}

// Portfolio returns the account totals row.
func (tx *Tx) Portfolio() models.Portfolio {
	return tx.l.portfolio
}

// SetPortfolio replaces the account totals row.
func (tx *Tx) SetPortfolio(p models.Portfolio) {
	tx.l.portfolio = p
}

// Position looks up a stock position by symbol.
func (tx *Tx) Position(symbol string) (models.Position, bool) {
	p, ok := tx.l.positions[symbol]
	return p, ok
}

// SetPosition inserts or replaces a stock position row.
func (tx *Tx) SetPosition(p models.Position) {
	tx.l.positions[p.Symbol] = p
}

// DeletePosition removes a stock position row.
func (tx *Tx) DeletePosition(symbol string) {
	delete(tx.l.positions, symbol)
}

// Positions returns all stock positions sorted by symbol.
func (tx *Tx) Positions() []models.Position {
	out := make([]models.Position, 0, len(tx.l.positions))
	for _, p := range tx.l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// OptionPosition looks up an option position by instrument key.
func (tx *Tx) OptionPosition(key string) (models.OptionPosition, bool) {
	p, ok := tx.l.options[key]
	return p, ok
}

// SetOptionPosition inserts or replaces an option position row.
func (tx *Tx) SetOptionPosition(p models.OptionPosition) {
	tx.l.options[p.Key] = p
}

// DeleteOptionPosition removes an option position row.
func (tx *Tx) DeleteOptionPosition(key string) {
	delete(tx.l.options, key)
}

// OptionPositions returns all option positions sorted by instrument key.
func (tx *Tx) OptionPositions() []models.OptionPosition {
	out := make([]models.OptionPosition, 0, len(tx.l.options))
	for _, p := range tx.l.options {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Trade looks up an ingested trade by ID.
func (tx *Tx) Trade(id string) (models.Trade, bool) {
	t, ok := tx.l.trades[id]
	return t, ok
}

// Trades returns every ingested trade, ordered by (date, id) so replays are
// deterministic regardless of delivery order.
func (tx *Tx) Trades() []models.Trade {
	out := make([]models.Trade, 0, len(tx.l.trades))
	for _, t := range tx.l.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot returns a consistent copy of the full table for derivation work
// outside the lock.
func (l *Ledger) Snapshot() (portfolio models.Portfolio, positions []models.Position, options []models.OptionPosition) {
	l.View(func(tx *Tx) error {
		portfolio = tx.Portfolio()
		positions = tx.Positions()
		options = tx.OptionPositions()
		return nil
	})
	return portfolio, positions, options
}

// TradeHistory returns the ordered trade record.
func (l *Ledger) TradeHistory() []models.Trade {
	var trades []models.Trade
	l.View(func(tx *Tx) error {
		trades = tx.Trades()
		return nil
	})
	return trades
}
