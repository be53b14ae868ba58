package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfreeman-dev/wheel-ledger/internal/ledger"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

func seedLedger(t *testing.T, cash float64, positions ...models.Position) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	l.Update(func(tx *ledger.Tx) error {
		tx.SetPortfolio(models.Portfolio{Cash: dec(cash)})
		for _, p := range positions {
			tx.SetPosition(p)
		}
		return nil
	})
	return l
}

func TestApplyOpportunityMarketData(t *testing.T) {
	t.Run("updates price and net liq in one pass", func(t *testing.T) {
		l := seedLedger(t, 1000, models.Position{
			Symbol: "AAPL", Quantity: dec(2), AverageCost: dec(10), CurrentPrice: dec(10),
		})
		r := NewReconciler(l, FilterConfig{})

		result := r.ApplyOpportunityMarketData([]models.OpportunityQuote{
			{Symbol: "AAPL", CurrentPrice: decPtr(12)},
		})

		assert.Equal(t, []string{"AAPL"}, result.UpdatedSymbols)
		assert.True(t, result.NetLiq.Equal(dec(1024)), "got %s", result.NetLiq)

		portfolio, positions, _ := l.Snapshot()
		assert.True(t, portfolio.NetLiq.Equal(dec(1024)))
		require.Len(t, positions, 1)
		assert.True(t, positions[0].CurrentPrice.Equal(dec(12)))
	})

	t.Run("first quote per symbol wins", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "AAPL", Quantity: dec(1), CurrentPrice: dec(10),
		})
		r := NewReconciler(l, FilterConfig{})

		r.ApplyOpportunityMarketData([]models.OpportunityQuote{
			{Symbol: "AAPL", CurrentPrice: decPtr(12)},
			{Symbol: "AAPL", CurrentPrice: decPtr(99)},
		})

		_, positions, _ := l.Snapshot()
		assert.True(t, positions[0].CurrentPrice.Equal(dec(12)))
	})

	t.Run("unknown symbols and unchanged prices are skipped", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "AAPL", Quantity: dec(1), CurrentPrice: dec(10),
		})
		r := NewReconciler(l, FilterConfig{})

		result := r.ApplyOpportunityMarketData([]models.OpportunityQuote{
			{Symbol: "MSFT", CurrentPrice: decPtr(400)},
			{Symbol: "AAPL", CurrentPrice: decPtr(10)},
			{Symbol: "", CurrentPrice: decPtr(5)},
			{Symbol: "AMD"},
		})

		assert.Empty(t, result.UpdatedSymbols)
	})

	t.Run("no filter applies to opportunity prices", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "AAPL", Quantity: dec(1), CurrentPrice: dec(100),
		})
		r := NewReconciler(l, FilterConfig{})

		// A move far below the acceptance threshold still lands.
		result := r.ApplyOpportunityMarketData([]models.OpportunityQuote{
			{Symbol: "AAPL", CurrentPrice: decPtr(100.01)},
		})
		assert.Equal(t, []string{"AAPL"}, result.UpdatedSymbols)
	})
}

func TestApplyLiveOptionMarketData(t *testing.T) {
	t.Run("price passes the filter and stashes the close", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "AAPL", Quantity: dec(1), CurrentPrice: dec(100),
		})
		r := NewReconciler(l, FilterConfig{})

		result := r.ApplyLiveOptionMarketData([]models.LiveOptionSnapshot{
			{Symbol: "AAPL", CurrentPrice: decPtr(102)},
		})

		assert.Equal(t, []string{"AAPL"}, result.UpdatedSymbols)
		_, positions, _ := l.Snapshot()
		require.Len(t, positions, 1)
		assert.True(t, positions[0].CurrentPrice.Equal(dec(102)))
		require.NotNil(t, positions[0].ClosePrice)
		assert.True(t, positions[0].ClosePrice.Equal(dec(100)))
	})

	t.Run("sub-threshold jitter is suppressed", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "AAPL", Quantity: dec(1), CurrentPrice: dec(100),
		})
		r := NewReconciler(l, FilterConfig{})

		result := r.ApplyLiveOptionMarketData([]models.LiveOptionSnapshot{
			{Symbol: "AAPL", CurrentPrice: decPtr(100.05)},
		})

		assert.Empty(t, result.UpdatedSymbols)
		_, positions, _ := l.Snapshot()
		assert.True(t, positions[0].CurrentPrice.Equal(dec(100)))
	})

	t.Run("first observed price seeds the close baseline", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "AAPL", Quantity: dec(1),
		})
		r := NewReconciler(l, FilterConfig{})

		r.ApplyLiveOptionMarketData([]models.LiveOptionSnapshot{
			{Symbol: "AAPL", CurrentPrice: decPtr(150)},
		})

		_, positions, _ := l.Snapshot()
		require.NotNil(t, positions[0].ClosePrice)
		assert.True(t, positions[0].ClosePrice.Equal(dec(150)))
		assert.True(t, positions[0].CurrentPrice.Equal(dec(150)))
	})

	t.Run("leg patches follow absent null value semantics", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "TSLA", Quantity: dec(100), CurrentPrice: dec(115),
			CC:  &models.LegQuote{Strike: decPtr(150)},
			CSP: &models.LegQuote{Strike: decPtr(100)},
		})
		r := NewReconciler(l, FilterConfig{})

		result := r.ApplyLiveOptionMarketData([]models.LiveOptionSnapshot{
			{
				Symbol: "TSLA",
				CC: models.SetLeg(&models.OptionLeg{
					Strike:          decPtr(120),
					Premium:         decPtr(5),
					AnnualizedYield: decPtr(12.5),
					Expiration:      "2026-02-06",
				}),
				CSP: models.RemoveLeg(),
			},
		})

		assert.Equal(t, []string{"TSLA"}, result.UpdatedSymbols)
		_, positions, _ := l.Snapshot()
		require.Len(t, positions, 1)
		pos := positions[0]
		require.NotNil(t, pos.CC)
		assert.True(t, pos.CC.Strike.Equal(dec(120)))
		assert.True(t, pos.CC.Premium.Equal(dec(5)))
		assert.True(t, pos.CC.Yield.Equal(dec(12.5)))
		assert.Equal(t, "2026-02-06", pos.CC.Expiration)
		assert.Nil(t, pos.CSP)
	})

	t.Run("absent leg keys leave existing legs untouched", func(t *testing.T) {
		l := seedLedger(t, 0, models.Position{
			Symbol: "TSLA", Quantity: dec(100), CurrentPrice: dec(115),
			CC: &models.LegQuote{Strike: decPtr(150)},
		})
		r := NewReconciler(l, FilterConfig{})

		r.ApplyLiveOptionMarketData([]models.LiveOptionSnapshot{
			{Symbol: "TSLA", CurrentPrice: decPtr(120)},
		})

		_, positions, _ := l.Snapshot()
		require.NotNil(t, positions[0].CC)
		assert.True(t, positions[0].CC.Strike.Equal(dec(150)))
	})

	t.Run("snapshots never create positions", func(t *testing.T) {
		l := seedLedger(t, 0)
		r := NewReconciler(l, FilterConfig{})

		result := r.ApplyLiveOptionMarketData([]models.LiveOptionSnapshot{
			{Symbol: "GHOST", CurrentPrice: decPtr(10)},
		})

		assert.Empty(t, result.UpdatedSymbols)
		_, positions, _ := l.Snapshot()
		assert.Empty(t, positions)
	})
}

func TestRefreshNetLiq(t *testing.T) {
	t.Run("sums cash stock and option values", func(t *testing.T) {
		l := ledger.New()
		mv := dec(-235)
		l.Update(func(tx *ledger.Tx) error {
			tx.SetPortfolio(models.Portfolio{Cash: dec(1000)})
			tx.SetPosition(models.Position{Symbol: "AAPL", Quantity: dec(10), CurrentPrice: dec(150)})
			tx.SetOptionPosition(models.OptionPosition{
				Key: "OPT:1", Symbol: "TSLA", Quantity: dec(-1),
				CurrentPrice: dec(2.35), Multiplier: dec(100), MarketValue: &mv,
			})
			return nil
		})

		var total string
		l.Update(func(tx *ledger.Tx) error {
			total = RefreshNetLiq(tx).String()
			return nil
		})
		// 1000 + 1500 - 235
		assert.Equal(t, "2265", total)
	})

	t.Run("falls back to price times quantity when market value is zero", func(t *testing.T) {
		l := ledger.New()
		zero := dec(0)
		l.Update(func(tx *ledger.Tx) error {
			tx.SetPortfolio(models.Portfolio{Cash: dec(0)})
			tx.SetOptionPosition(models.OptionPosition{
				Key: "OPT:1", Symbol: "TSLA", Quantity: dec(-1),
				CurrentPrice: dec(2), Multiplier: dec(100), MarketValue: &zero,
			})
			return nil
		})

		var total string
		l.Update(func(tx *ledger.Tx) error {
			total = RefreshNetLiq(tx).String()
			return nil
		})
		assert.Equal(t, "-200", total)
	})

	t.Run("stock price falls back to average cost", func(t *testing.T) {
		l := ledger.New()
		l.Update(func(tx *ledger.Tx) error {
			tx.SetPortfolio(models.Portfolio{Cash: dec(0)})
			tx.SetPosition(models.Position{Symbol: "AAPL", Quantity: dec(10), AverageCost: dec(150)})
			return nil
		})

		var total string
		l.Update(func(tx *ledger.Tx) error {
			total = RefreshNetLiq(tx).String()
			return nil
		})
		assert.Equal(t, "1500", total)
	})
}
