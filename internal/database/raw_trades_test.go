package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

func TestRawTradesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("CreateRawTrade creates stock trade", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := &models.RawTrade{
			OrderID:    "ord-1001",
			Source:     "broker-executions",
			Symbol:     "AAPL",
			Side:       "BUY",
			Quantity:   decimal.NewFromInt(100),
			Price:      decimal.NewFromFloat(180.50),
			TotalCost:  decimal.NewFromFloat(18050.00),
			Fees:       decimal.NewFromFloat(1.05),
			SecType:    "STK",
			ExecutedAt: time.Now().Add(-1 * time.Hour),
		}

		err := testDB.CreateRawTrade(trade)
		require.NoError(t, err)
		assert.NotZero(t, trade.ID)
		assert.False(t, trade.CreatedAt.IsZero())
	})

	t.Run("CreateRawTrade creates option trade with contract fields", func(t *testing.T) {
		testDB.TruncateAll(t)

		strike := decimal.NewFromInt(120)
		conID := int64(553947324)
		trade := &models.RawTrade{
			OrderID:    "ord-2001",
			Source:     "broker-executions",
			Symbol:     "TSLA",
			Side:       "CSP",
			Quantity:   decimal.NewFromInt(-1),
			Price:      decimal.NewFromFloat(2.35),
			TotalCost:  decimal.NewFromFloat(-235.00),
			Fees:       decimal.NewFromFloat(0.65),
			SecType:    "OPT",
			Right:      "P",
			Strike:     &strike,
			Expiration: "20260206",
			ConID:      &conID,
			ExecutedAt: time.Now().Add(-30 * time.Minute),
		}

		err := testDB.CreateRawTrade(trade)
		require.NoError(t, err)

		retrieved, err := testDB.GetRawTradeByID(trade.ID)
		require.NoError(t, err)
		assert.Equal(t, "TSLA", retrieved.Symbol)
		assert.Equal(t, "CSP", retrieved.Side)
		assert.Equal(t, "OPT", retrieved.SecType)
		assert.Equal(t, "P", retrieved.Right)
		require.NotNil(t, retrieved.Strike)
		assert.True(t, retrieved.Strike.Equal(strike))
		assert.Equal(t, "20260206", retrieved.Expiration)
		require.NotNil(t, retrieved.ConID)
		assert.Equal(t, conID, *retrieved.ConID)
	})

	t.Run("CreateRawTrade rejects duplicate order_id for same source", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := &models.RawTrade{
			OrderID:    "ord-3001",
			Source:     "broker-executions",
			Symbol:     "MSFT",
			Side:       "BUY",
			Quantity:   decimal.NewFromInt(10),
			Price:      decimal.NewFromFloat(400.00),
			TotalCost:  decimal.NewFromFloat(4000.00),
			ExecutedAt: time.Now(),
		}
		require.NoError(t, testDB.CreateRawTrade(trade))

		dup := &models.RawTrade{
			OrderID:    "ord-3001",
			Source:     "broker-executions",
			Symbol:     "MSFT",
			Side:       "BUY",
			Quantity:   decimal.NewFromInt(10),
			Price:      decimal.NewFromFloat(400.00),
			TotalCost:  decimal.NewFromFloat(4000.00),
			ExecutedAt: time.Now(),
		}
		err := testDB.CreateRawTrade(dup)
		assert.Error(t, err)
	})

	t.Run("RawTradeExistsByOrderID distinguishes sources", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := &models.RawTrade{
			OrderID:    "ord-4001",
			Source:     "broker-executions",
			Symbol:     "NVDA",
			Side:       "SELL",
			Quantity:   decimal.NewFromInt(-5),
			Price:      decimal.NewFromFloat(900.00),
			TotalCost:  decimal.NewFromFloat(-4500.00),
			ExecutedAt: time.Now(),
		}
		require.NoError(t, testDB.CreateRawTrade(trade))

		exists, err := testDB.RawTradeExistsByOrderID("ord-4001", "broker-executions")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = testDB.RawTradeExistsByOrderID("ord-4001", "manual-entry")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = testDB.RawTradeExistsByOrderID("ord-9999", "broker-executions")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("GetRawTradesBySymbol returns newest first", func(t *testing.T) {
		testDB.TruncateAll(t)

		base := time.Now().Add(-24 * time.Hour)
		for i, orderID := range []string{"ord-5001", "ord-5002", "ord-5003"} {
			trade := &models.RawTrade{
				OrderID:    orderID,
				Source:     "broker-executions",
				Symbol:     "AMD",
				Side:       "BUY",
				Quantity:   decimal.NewFromInt(10),
				Price:      decimal.NewFromFloat(150.00),
				TotalCost:  decimal.NewFromFloat(1500.00),
				ExecutedAt: base.Add(time.Duration(i) * time.Hour),
			}
			require.NoError(t, testDB.CreateRawTrade(trade))
		}
		other := &models.RawTrade{
			OrderID:    "ord-5004",
			Source:     "broker-executions",
			Symbol:     "INTC",
			Side:       "BUY",
			Quantity:   decimal.NewFromInt(10),
			Price:      decimal.NewFromFloat(30.00),
			TotalCost:  decimal.NewFromFloat(300.00),
			ExecutedAt: base,
		}
		require.NoError(t, testDB.CreateRawTrade(other))

		trades, err := testDB.GetRawTradesBySymbol("AMD", 10)
		require.NoError(t, err)
		require.Len(t, trades, 3)
		assert.Equal(t, "ord-5003", trades[0].OrderID)
		assert.Equal(t, "ord-5001", trades[2].OrderID)
	})

	t.Run("GetAllRawTrades returns oldest first", func(t *testing.T) {
		testDB.TruncateAll(t)

		base := time.Now().Add(-48 * time.Hour)
		for i, orderID := range []string{"ord-6003", "ord-6001", "ord-6002"} {
			trade := &models.RawTrade{
				OrderID:    orderID,
				Source:     "broker-executions",
				Symbol:     "SPY",
				Side:       "BUY",
				Quantity:   decimal.NewFromInt(1),
				Price:      decimal.NewFromFloat(500.00),
				TotalCost:  decimal.NewFromFloat(500.00),
				ExecutedAt: base.Add(time.Duration(3-i) * time.Hour),
			}
			require.NoError(t, testDB.CreateRawTrade(trade))
		}

		trades, err := testDB.GetAllRawTrades(10)
		require.NoError(t, err)
		require.Len(t, trades, 3)
		assert.Equal(t, "ord-6002", trades[0].OrderID)
		assert.Equal(t, "ord-6001", trades[1].OrderID)
		assert.Equal(t, "ord-6003", trades[2].OrderID)
	})

	t.Run("GetRawTradesByDateRange filters to window", func(t *testing.T) {
		testDB.TruncateAll(t)

		now := time.Now()
		timestamps := []time.Time{
			now.Add(-72 * time.Hour),
			now.Add(-24 * time.Hour),
			now.Add(-1 * time.Hour),
		}
		for i, ts := range timestamps {
			trade := &models.RawTrade{
				OrderID:    fmt.Sprintf("ord-700%d", i+1),
				Source:     "broker-executions",
				Symbol:     "QQQ",
				Side:       "BUY",
				Quantity:   decimal.NewFromInt(1),
				Price:      decimal.NewFromFloat(450.00),
				TotalCost:  decimal.NewFromFloat(450.00),
				ExecutedAt: ts,
			}
			require.NoError(t, testDB.CreateRawTrade(trade))
		}

		trades, err := testDB.GetRawTradesByDateRange(now.Add(-36*time.Hour), now)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, "ord-7002", trades[0].OrderID)
		assert.Equal(t, "ord-7003", trades[1].OrderID)
	})

	t.Run("nullable fields round-trip as empty", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := &models.RawTrade{
			OrderID:    "ord-8001",
			Source:     "manual-entry",
			Symbol:     "F",
			Side:       "BUY",
			Quantity:   decimal.NewFromInt(200),
			Price:      decimal.NewFromFloat(12.00),
			TotalCost:  decimal.NewFromFloat(2400.00),
			ExecutedAt: time.Now(),
		}
		require.NoError(t, testDB.CreateRawTrade(trade))

		retrieved, err := testDB.GetRawTradeByID(trade.ID)
		require.NoError(t, err)
		assert.Empty(t, retrieved.SecType)
		assert.Empty(t, retrieved.Right)
		assert.Nil(t, retrieved.Strike)
		assert.Empty(t, retrieved.Expiration)
		assert.Nil(t, retrieved.ConID)
	})
}
