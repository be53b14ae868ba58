package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// CreateRawTrade inserts a new raw trade record. The archive is append-only:
// raw trades are never updated or deleted once written.
func (db *DB) CreateRawTrade(t *models.RawTrade) error {
	query := `
		INSERT INTO raw_trades (
			order_id, source, symbol, side, quantity, price, total_cost, fees,
			sec_type, option_right, strike, expiration, con_id, executed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		RETURNING id
	`
	now := time.Now()

	err := db.conn.QueryRow(query,
		t.OrderID, t.Source, t.Symbol, t.Side, t.Quantity, t.Price, t.TotalCost, t.Fees,
		nullString(t.SecType), nullString(t.Right), decimalPtrValue(t.Strike),
		nullString(t.Expiration), t.ConID, t.ExecutedAt, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create raw trade: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// RawTradeExistsByOrderID checks if a raw trade with the given order_id and source already exists
func (db *DB) RawTradeExistsByOrderID(orderID, source string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM raw_trades WHERE order_id = $1 AND source = $2)`
	var exists bool
	err := db.conn.QueryRow(query, orderID, source).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check raw trade existence: %w", err)
	}
	return exists, nil
}

// GetRawTradeByID retrieves a raw trade by ID
func (db *DB) GetRawTradeByID(id int) (*models.RawTrade, error) {
	query := `
		SELECT id, order_id, source, symbol, side, quantity, price, total_cost, fees,
		       sec_type, option_right, strike, expiration, con_id, executed_at, created_at
		FROM raw_trades
		WHERE id = $1
	`
	return db.scanSingleRawTrade(db.conn.QueryRow(query, id))
}

// GetRawTradesBySymbol retrieves all raw trades for a symbol
func (db *DB) GetRawTradesBySymbol(symbol string, limit int) ([]*models.RawTrade, error) {
	query := `
		SELECT id, order_id, source, symbol, side, quantity, price, total_cost, fees,
		       sec_type, option_right, strike, expiration, con_id, executed_at, created_at
		FROM raw_trades
		WHERE symbol = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`
	return db.scanRawTrades(db.conn.Query(query, symbol, limit))
}

// GetAllRawTrades retrieves raw trades ordered oldest first, the order the
// P&L engine replays them in.
func (db *DB) GetAllRawTrades(limit int) ([]*models.RawTrade, error) {
	query := `
		SELECT id, order_id, source, symbol, side, quantity, price, total_cost, fees,
		       sec_type, option_right, strike, expiration, con_id, executed_at, created_at
		FROM raw_trades
		ORDER BY executed_at ASC, order_id ASC
		LIMIT $1
	`
	return db.scanRawTrades(db.conn.Query(query, limit))
}

// GetRawTradesByDateRange retrieves raw trades executed within a date range
func (db *DB) GetRawTradesByDateRange(startDate, endDate time.Time) ([]*models.RawTrade, error) {
	query := `
		SELECT id, order_id, source, symbol, side, quantity, price, total_cost, fees,
		       sec_type, option_right, strike, expiration, con_id, executed_at, created_at
		FROM raw_trades
		WHERE executed_at >= $1 AND executed_at <= $2
		ORDER BY executed_at ASC, order_id ASC
	`
	return db.scanRawTrades(db.conn.Query(query, startDate, endDate))
}

func (db *DB) scanSingleRawTrade(row *sql.Row) (*models.RawTrade, error) {
	var t models.RawTrade
	var fees, secType, right, strike, expiration sql.NullString
	var conID sql.NullInt64

	err := row.Scan(
		&t.ID, &t.OrderID, &t.Source, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.TotalCost, &fees,
		&secType, &right, &strike, &expiration, &conID, &t.ExecutedAt, &t.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("raw trade not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw trade: %w", err)
	}

	applyNullableRawTradeFields(&t, fees, secType, right, strike, expiration, conID)
	return &t, nil
}

func (db *DB) scanRawTrades(rows *sql.Rows, err error) ([]*models.RawTrade, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query raw trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.RawTrade
	for rows.Next() {
		var t models.RawTrade
		var fees, secType, right, strike, expiration sql.NullString
		var conID sql.NullInt64

		err := rows.Scan(
			&t.ID, &t.OrderID, &t.Source, &t.Symbol, &t.Side, &t.Quantity, &t.Price, &t.TotalCost, &fees,
			&secType, &right, &strike, &expiration, &conID, &t.ExecutedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raw trade: %w", err)
		}

		applyNullableRawTradeFields(&t, fees, secType, right, strike, expiration, conID)
		trades = append(trades, &t)
	}

	return trades, nil
}

func applyNullableRawTradeFields(t *models.RawTrade, fees, secType, right, strike, expiration sql.NullString, conID sql.NullInt64) {
	if fees.Valid {
		t.Fees, _ = decimal.NewFromString(fees.String)
	}
	if secType.Valid {
		t.SecType = secType.String
	}
	if right.Valid {
		t.Right = right.String
	}
	if strike.Valid {
		if parsed, err := decimal.NewFromString(strike.String); err == nil {
			t.Strike = &parsed
		}
	}
	if expiration.Valid {
		t.Expiration = expiration.String
	}
	if conID.Valid {
		id := conID.Int64
		t.ConID = &id
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func decimalPtrValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}
