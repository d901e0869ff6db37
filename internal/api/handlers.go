package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/backtest"
	"github.com/evilc0des/prop-bots/internal/datasource"
	"github.com/evilc0des/prop-bots/internal/risk"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// BacktestRequest is the body of POST /backtest. The embedded config
// is the same document accepted by the CLI and the YAML loader.
type BacktestRequest struct {
	Config   backtest.Config `json:"config"`
	DataFile string          `json:"data_file"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch {
	case code == errors.ErrCodeBacktestNotFound:
		status = http.StatusNotFound
	case code >= 100 && code < 200:
		status = http.StatusBadRequest
	case code == errors.ErrCodeUnknownStrategy, code == errors.ErrCodeUnknownProfile,
		code == errors.ErrCodeNoDataFound, code == errors.ErrCodeBacktestNoBars:
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, errorResponse{Code: int(code), Message: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"strategies": s.registry.List(),
	})
}

func (s *Server) handleRiskProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"profiles": risk.Profiles(),
	})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err))
		return
	}
	if req.DataFile == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidParameter, "data_file is required"))
		return
	}
	if err := req.Config.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	strat, err := s.registry.Create(req.Config.Strategy)
	if err != nil {
		s.writeError(w, err)
		return
	}

	profile, err := risk.GetProfile(req.Config.RiskProfile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	riskManager, err := risk.NewPropFirmRiskManager(profile, s.logger)
	if err != nil {
		s.writeError(w, err)
		return
	}

	provider := datasource.NewCSVProvider(req.Config.Instrument.Symbol, req.DataFile, "")
	defer provider.Close()

	bars, err := provider.Bars(r.Context(), req.Config.Instrument.Symbol, time.Time{}, time.Time{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	engine, err := backtest.NewEngine(req.Config, s.logger)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := engine.Run(r.Context(), bars, strat, riskManager, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.store.Put(result)
	s.logger.Info("backtest run via api",
		zap.String("id", result.ID),
		zap.String("strategy", result.StrategyID),
		zap.Int("trades", result.TotalTrades),
	)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ids": s.store.IDs(),
	})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
