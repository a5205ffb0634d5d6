package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"candlescan/internal/pattern"
	"candlescan/internal/store"
	"candlescan/internal/symbols"
	"candlescan/pkg/model"
)

// RulesResponse lists the active rules
type RulesResponse struct {
	Rules []pattern.RuleInfo `json:"rules"`
}

// StockResponse represents a single stock with chart data and its matches
type StockResponse struct {
	Symbol  string              `json:"symbol"`
	Name    string              `json:"name"`
	Candles []model.Candle      `json:"candles"`
	Matches []model.MatchRecord `json:"matches"`
}

// UniverseResponse represents available universes
type UniverseResponse struct {
	Universes []UniverseInfo `json:"universes"`
}

// UniverseInfo contains universe details
type UniverseInfo struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// RunResponse is a stored run with its matches
type RunResponse struct {
	ID      string              `json:"id"`
	Matches []store.StoredMatch `json:"matches"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleRules lists rule names and window lengths in evaluation order
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, RulesResponse{Rules: s.scanner.Registry().Info()})
}

// invalidator is implemented by providers that keep fetched series in memory
type invalidator interface {
	Invalidate()
}

// handleScan runs a synchronous scan: ?symbols=AAPL,MSFT or ?universe=nasdaq100.
// refresh=true drops cached series first.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		stocks []model.Stock
		err    error
	)
	q := r.URL.Query()
	if list := q.Get("symbols"); list != "" {
		stocks, err = s.loader.LoadSymbols([]string{list})
	} else {
		name := q.Get("universe")
		if name == "" {
			name = string(symbols.UniverseTest)
		}
		var u symbols.Universe
		if u, err = symbols.ParseUniverse(name); err == nil {
			stocks, err = s.loader.LoadUniverse(u)
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(stocks) == 0 {
		writeError(w, http.StatusBadRequest, "no symbols to scan")
		return
	}

	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		if c, ok := s.provider.(invalidator); ok {
			c.Invalidate()
			s.logger.Debug().Msg("provider cache dropped")
		}
	}

	result, err := s.scanner.Scan(r.Context(), stocks)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.store != nil {
		if _, err := s.store.SaveRun(r.Context(), result); err != nil {
			s.logger.Error().Err(err).Msg("saving run")
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleStock returns candles and recent matches for one symbol: /api/stock/AAPL
func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/stock/")))
	stocks, err := s.loader.LoadSymbols([]string{symbol})
	if err != nil || len(stocks) != 1 {
		writeError(w, http.StatusBadRequest, "valid symbol required")
		return
	}
	stock := stocks[0]

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	candles, err := s.provider.GetDailyCandles(ctx, stock.Symbol, s.lookbackDays)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to get stock data: "+err.Error())
		return
	}

	res, err := s.scanner.ScanCandles(stock, candles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StockResponse{
		Symbol:  stock.Symbol,
		Name:    stock.Name,
		Candles: candles,
		Matches: res.Matches,
	})
}

func (s *Server) handleUniverses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	available := symbols.Universes()
	universes := make([]UniverseInfo, len(available))
	for i, u := range available {
		universes[i] = UniverseInfo{ID: string(u), Count: len(symbols.GetUniverse(u))}
	}
	writeJSON(w, http.StatusOK, UniverseResponse{Universes: universes})
}

// handleRuns lists stored runs, newest first: /api/runs?limit=20
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleRun returns the matches of one stored run: /api/runs/<id>
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/runs/"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id required")
		return
	}

	matches, err := s.store.RunMatches(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{ID: id, Matches: matches})
}
