package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Position routes
	api.HandleFunc("/positions", handler.GetPositions).Methods("GET")
	api.HandleFunc("/positions/options", handler.GetOptionPositions).Methods("GET")
	api.HandleFunc("/positions/groups", handler.GetGroups).Methods("GET")
	api.HandleFunc("/positions/sync", handler.SyncPositions).Methods("POST")

	// Portfolio routes
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/performance", handler.GetPerformance).Methods("GET")

	// Trade routes
	api.HandleFunc("/trades", handler.GetTrades).Methods("GET")
	api.HandleFunc("/trades", handler.CreateTrade).Methods("POST")
	api.HandleFunc("/pnl", handler.GetRealizedPnL).Methods("GET")

	// Market data routes
	api.HandleFunc("/market-data/live", handler.ApplyLiveMarketData).Methods("POST")
	api.HandleFunc("/market-data/opportunities", handler.ApplyOpportunityMarketData).Methods("POST")
	api.HandleFunc("/market-data/legs/refresh", handler.RefreshLegs).Methods("POST")

	return r
}
