// Package api provides the HTTP REST API and WebSocket event relay of
// the gateway.
//
// Request handlers are stateless: each authenticated request opens its
// own upstream session from the refresh token carried in the caller's
// access token, performs its work and drops the session. The WebSocket
// relay is the one exception; it keeps an upstream push stream open for
// the lifetime of the connection.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/skybridge/internal/capture"
	"github.com/nerrad567/skybridge/internal/history"
	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
	"github.com/nerrad567/skybridge/internal/journal"
	"github.com/nerrad567/skybridge/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Store    *session.Store
	Upstream *session.Upstream

	// Journal, History and Saver are optional; nil disables the feature.
	Journal *journal.Journal
	History *history.Recorder
	Saver   *capture.Saver

	Version string
}

// Server is the gateway's HTTP API server.
type Server struct {
	cfg        config.APIConfig
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration

	logger   *logging.Logger
	store    *session.Store
	upstream *session.Upstream
	journal  *journal.Journal
	history  *history.Recorder
	saver    *capture.Saver

	version string
	server  *http.Server
}

// New creates an API server with the given dependencies. The server is
// not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Upstream == nil {
		return nil, errors.New("upstream factory is required")
	}

	return &Server{
		cfg:        deps.Config.API,
		secret:     deps.Config.Auth.Secret,
		accessTTL:  deps.Config.AccessTokenLifetime(),
		refreshTTL: deps.Config.RefreshTokenLifetime(),
		logger:     deps.Logger.With("component", "api"),
		store:      deps.Store,
		upstream:   deps.Upstream,
		journal:    deps.Journal,
		history:    deps.History,
		saver:      deps.Saver,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting for in-flight
// requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
