// Package api exposes the backtest engine over HTTP. The server is
// stateless apart from an in-memory store of completed results.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/strategy"
)

// Config configures the HTTP server.
type Config struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// DefaultConfig returns the standard listen address.
func DefaultConfig() Config {
	return Config{ListenAddr: ":8080"}
}

// Server routes HTTP requests to the backtest engine, the strategy
// registry and the risk profile catalog.
type Server struct {
	config   Config
	logger   *logger.Logger
	registry *strategy.Registry
	store    *resultStore
	router   *mux.Router
	httpSrv  *http.Server
}

// NewServer builds a server around the given strategy registry.
func NewServer(config Config, registry *strategy.Registry, l *logger.Logger) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if registry == nil {
		registry = strategy.DefaultRegistry
	}

	s := &Server{
		config:   config,
		logger:   l,
		registry: registry,
		store:    newResultStore(),
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	s.router.HandleFunc("/risk/profiles", s.handleRiskProfiles).Methods(http.MethodGet)
	s.router.HandleFunc("/backtest", s.handleRunBacktest).Methods(http.MethodPost)
	s.router.HandleFunc("/backtest", s.handleListBacktests).Methods(http.MethodGet)
	s.router.HandleFunc("/backtest/{id}", s.handleGetBacktest).Methods(http.MethodGet)
}

// Router returns the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", s.config.ListenAddr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
