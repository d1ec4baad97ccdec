// Package api serves the read-only REST surface: account PnL and
// per-strategy signal performance.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/exchange"
)

// PnLSource aggregates realized PnL per token from the order journal.
type PnLSource interface {
	RealizedPnL(ctx context.Context) (map[string]float64, error)
}

// BalanceSource reports account balances from the venue.
type BalanceSource interface {
	FetchBalances(ctx context.Context) (map[string]exchange.Balance, error)
}

// PerformanceSource reports each live engine's signal-history summary.
type PerformanceSource interface {
	PerformanceSummaries() map[string]map[string]float64
}

// Server wires the HTTP handlers.
type Server struct {
	pnl      PnLSource
	balances BalanceSource
	perf     PerformanceSource
	log      zerolog.Logger
}

func NewServer(pnl PnLSource, balances BalanceSource, perf PerformanceSource, log zerolog.Logger) *Server {
	return &Server{
		pnl:      pnl,
		balances: balances,
		perf:     perf,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pnl", s.handlePnL)
	mux.HandleFunc("GET /api/strategies/performance", s.handlePerformance)
	return mux
}

// Serve listens on addr in the background and returns the server so the
// caller can shut it down.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("api server stopped")
		}
	}()
	return srv
}

type pnlResponse struct {
	RealizedPnL map[string]float64        `json:"realized_pnl"`
	Balances    map[string]balanceSummary `json:"balances,omitempty"`
}

type balanceSummary struct {
	Available float64 `json:"available"`
	Locked    float64 `json:"locked"`
	Total     float64 `json:"total"`
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	pnl, err := s.pnl.RealizedPnL(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("pnl aggregation failed")
		http.Error(w, "pnl aggregation failed", http.StatusInternalServerError)
		return
	}

	resp := pnlResponse{RealizedPnL: pnl}
	if s.balances != nil {
		// Balances are best-effort; the journal aggregate still answers
		// when the venue is unreachable.
		if bals, err := s.balances.FetchBalances(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("balance fetch failed")
		} else {
			resp.Balances = make(map[string]balanceSummary, len(bals))
			for asset, b := range bals {
				if b.Total == 0 {
					continue
				}
				resp.Balances[asset] = balanceSummary{
					Available: b.Available,
					Locked:    b.Locked,
					Total:     b.Total,
				}
			}
		}
	}
	writeJSON(w, s.log, resp)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log, s.perf.PerformanceSummaries())
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding response failed")
	}
}
