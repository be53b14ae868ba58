package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/aggregate"
	"github.com/dfreeman-dev/wheel-ledger/internal/database"
	"github.com/dfreeman-dev/wheel-ledger/internal/kafka"
	"github.com/dfreeman-dev/wheel-ledger/internal/ledger"
	"github.com/dfreeman-dev/wheel-ledger/internal/legs"
	"github.com/dfreeman-dev/wheel-ledger/internal/marketdata"
	"github.com/dfreeman-dev/wheel-ledger/internal/models"
	"github.com/dfreeman-dev/wheel-ledger/internal/pnl"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ledger     *ledger.Ledger
	reconciler *marketdata.Reconciler
	legSync    *legs.Synchronizer
	db         *database.DB
	producer   *kafka.Producer

	targetWinProb int
	dteWindow     string
}

// NewHandler creates a new Handler. legSync, db and producer may be nil when
// the corresponding backend is not configured.
func NewHandler(l *ledger.Ledger, reconciler *marketdata.Reconciler, legSync *legs.Synchronizer, db *database.DB, producer *kafka.Producer, targetWinProb int, dteWindow string) *Handler {
	return &Handler{
		ledger:        l,
		reconciler:    reconciler,
		legSync:       legSync,
		db:            db,
		producer:      producer,
		targetWinProb: targetWinProb,
		dteWindow:     dteWindow,
	}
}

// GetPositions handles GET /positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	_, positions, _ := h.ledger.Snapshot()
	respondJSON(w, http.StatusOK, positions)
}

// GetOptionPositions handles GET /positions/options
func (h *Handler) GetOptionPositions(w http.ResponseWriter, r *http.Request) {
	_, _, options := h.ledger.Snapshot()
	respondJSON(w, http.StatusOK, options)
}

// SyncPositions handles POST /positions/sync. The body is an authoritative
// broker snapshot; it replaces all held positions in one swap.
func (h *Handler) SyncPositions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Portfolio *models.Portfolio       `json:"portfolio,omitempty"`
		Positions []models.Position       `json:"positions"`
		Options   []models.OptionPosition `json:"options"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.ledger.ReplaceAllPositions(req.Positions, req.Options)
	if req.Portfolio != nil {
		h.ledger.SyncPortfolio(*req.Portfolio)
	}

	portfolio, positions, options := h.ledger.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"portfolio": portfolio,
		"positions": positions,
		"options":   options,
	})
}

// GetGroups handles GET /positions/groups
func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	mode := aggregate.SortMode(r.URL.Query().Get("sort"))
	if mode == "" {
		mode = aggregate.SortMarketValue
	}

	_, positions, options := h.ledger.Snapshot()
	respondJSON(w, http.StatusOK, aggregate.GroupPositions(positions, options, mode))
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, _, _ := h.ledger.Snapshot()
	respondJSON(w, http.StatusOK, portfolio)
}

// GetPerformance handles GET /portfolio/performance
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	portfolio, positions, options := h.ledger.Snapshot()
	respondJSON(w, http.StatusOK, aggregate.PortfolioPerformance(portfolio, positions, options))
}

// GetRealizedPnL handles GET /pnl
func (h *Handler) GetRealizedPnL(w http.ResponseWriter, r *http.Request) {
	trades := h.ledger.TradeHistory()
	respondJSON(w, http.StatusOK, pnl.Summarize(trades, time.Now()))
}

// GetTrades handles GET /trades
func (h *Handler) GetTrades(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.TradeHistory())
}

// CreateTrade handles POST /trades. Manual entries get a locally generated
// ID; broker executions normally arrive over Kafka instead.
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if trade.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	if trade.ID == "" {
		trade.ID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}
	if trade.Date.IsZero() {
		trade.Date = time.Now()
	}

	if h.ledger.Ingest(trade) == 0 {
		http.Error(w, "trade rejected: unresolvable instrument, zero quantity or negative price", http.StatusUnprocessableEntity)
		return
	}

	if h.db != nil {
		if err := h.db.CreateRawTrade(manualRawTrade(&trade)); err != nil {
			log.Printf("Failed to archive manual trade %s: %v", trade.ID, err)
		}
	}

	respondJSON(w, http.StatusCreated, trade)
}

// ApplyLiveMarketData handles POST /market-data/live
func (h *Handler) ApplyLiveMarketData(w http.ResponseWriter, r *http.Request) {
	var snapshots []models.LiveOptionSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshots); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := h.reconciler.ApplyLiveOptionMarketData(snapshots)
	h.publishApplied(r, "live-options", result)
	respondJSON(w, http.StatusOK, result)
}

// ApplyOpportunityMarketData handles POST /market-data/opportunities
func (h *Handler) ApplyOpportunityMarketData(w http.ResponseWriter, r *http.Request) {
	var quotes []models.OpportunityQuote
	if err := json.NewDecoder(r.Body).Decode(&quotes); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := h.reconciler.ApplyOpportunityMarketData(quotes)
	h.publishApplied(r, "opportunities", result)
	respondJSON(w, http.StatusOK, result)
}

// RefreshLegs handles POST /market-data/legs/refresh: fetch live option legs
// for the given symbols, splice cached legs over invalid fresh ones, and
// apply the merged snapshots to the ledger.
func (h *Handler) RefreshLegs(w http.ResponseWriter, r *http.Request) {
	if h.legSync == nil {
		http.Error(w, "leg synchronizer not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Symbols       []string `json:"symbols"`
		TargetWinProb int      `json:"target_win_prob,omitempty"`
		DTEWindow     string   `json:"dte_window,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Symbols) == 0 {
		http.Error(w, "symbols is required", http.StatusBadRequest)
		return
	}

	targetWinProb := req.TargetWinProb
	if targetWinProb == 0 {
		targetWinProb = h.targetWinProb
	}
	dteWindow := req.DTEWindow
	if dteWindow == "" {
		dteWindow = h.dteWindow
	}

	snapshots, err := h.legSync.Refresh(r.Context(), req.Symbols, targetWinProb, dteWindow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	result := h.reconciler.ApplyLiveOptionMarketData(snapshots)
	h.publishApplied(r, "live-options", result)
	respondJSON(w, http.StatusOK, map[string]any{
		"snapshots": snapshots,
		"result":    result,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) publishApplied(r *http.Request, feed string, result models.SnapshotResult) {
	if h.producer == nil {
		return
	}
	if err := h.producer.PublishMarketDataApplied(r.Context(), feed, result); err != nil {
		log.Printf("Failed to publish market data event for feed %s: %v", feed, err)
	}
}

func manualRawTrade(t *models.Trade) *models.RawTrade {
	mult := decimal.NewFromInt(1)
	if t.SecType == models.SecTypeOption {
		if t.Multiplier != nil && !t.Multiplier.IsZero() {
			mult = *t.Multiplier
		} else {
			mult = decimal.NewFromInt(100)
		}
	}

	raw := &models.RawTrade{
		OrderID:    t.ID,
		Source:     "manual-entry",
		Symbol:     t.Symbol,
		Side:       t.Type,
		Quantity:   t.SignedQuantity(),
		Price:      t.Price,
		TotalCost:  t.Price.Mul(t.SignedQuantity()).Mul(mult),
		Fees:       t.Commission,
		SecType:    t.SecType,
		Right:      t.Right,
		Strike:     t.Strike,
		Expiration: t.Expiration,
		ExecutedAt: t.Date,
	}
	if t.ConID != 0 {
		conID := t.ConID
		raw.ConID = &conID
	}
	return raw
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
