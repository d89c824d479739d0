package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/patrickward/livepad/internal/config"
	"github.com/patrickward/livepad/internal/files"
	"github.com/patrickward/livepad/internal/flash"
	"github.com/patrickward/livepad/internal/live"
	"github.com/patrickward/livepad/internal/logging"
	"github.com/patrickward/livepad/internal/rendering"
	"github.com/patrickward/livepad/internal/workers"
)

const statsInterval = 5 * time.Minute

// Server holds the application state and configuration
type Server struct {
	cfg        *config.Config
	store      *files.Store
	crypt      *files.EncryptionManager
	renderer   *rendering.MarkdownRenderer
	hub        *live.Hub
	worker     *workers.BackgroundWorker
	flash      *flash.Manager
	baseTempl  *template.Template // Common templates (layouts, partials)
	httpServer *http.Server
	log        zerolog.Logger
}

// ServerOption for configuring the server with functional options pattern
type ServerOption func(*Server) error

// NewServer initializes the server for the data directory in cfg
func NewServer(ctx context.Context, cfg *config.Config, opts ...ServerOption) (*Server, error) {
	rootManager, err := files.NewRootManager(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("could not parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		crypt:     files.NewEncryptionManager(),
		renderer:  rendering.NewMarkdownRenderer(),
		worker:    workers.NewBackgroundWorker(ctx),
		flash:     flash.NewManager(),
		baseTempl: tmpl,
		log:       logging.Component("server"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.store = files.NewStore(rootManager, s.crypt)
	if err := s.store.Initialize(); err != nil {
		return nil, fmt.Errorf("could not initialize document store: %w", err)
	}

	s.hub = live.NewHub(s.renderer, s.worker, cfg.SessionOptions())
	s.hub.ScheduleStats(statsInterval)

	return s, nil
}

// WithEncryptionManager sets the encryption manager for the server
func WithEncryptionManager(manager *files.EncryptionManager) ServerOption {
	return func(s *Server) error {
		if manager == nil {
			return errors.New("encryption manager is nil")
		}
		s.crypt = manager
		return nil
	}
}

// Handler returns the HTTP handler and starts the background worker. It
// is used directly by tests.
func (s *Server) Handler() http.Handler {
	s.worker.Start()
	return s.setupRoutes()
}

// Start starts the server and all background tasks
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.cfg.ListenAddr(),
		ReadTimeout: 5 * time.Second,
		// Websocket writes set their own deadlines.
		WriteTimeout: 0,
		IdleTimeout:  time.Minute,
		Handler:      s.Handler(),
	}

	// Channel to receive OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", s.httpServer.Addr).
			Str("data_dir", s.cfg.DataDir).
			Bool("encryption", s.crypt.CanEncrypt()).
			Msg("starting server")
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	// Wait for either termination signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
	case sig := <-sigChan:
		s.log.Info().Str("signal", sig.String()).Msg("initiating shutdown")
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server and background tasks
func (s *Server) Shutdown() error {
	s.log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Hijacked websocket connections are not tracked by http.Server.
	s.hub.Close()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("error during HTTP server shutdown")
		}
	}

	s.worker.Shutdown()

	s.log.Info().Msg("server shutdown complete")
	return nil
}
