package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"llmperfbench/internal/config"
	"llmperfbench/internal/logging"
)

const (
	DefaultPort     = "8080"
	shutdownTimeout = 30 * time.Second
)

// Options configures a Server.
type Options struct {
	Port     string
	Base     *config.Config
	Launcher Launcher
	Logger   *logging.Logger
}

// Server runs benchmark jobs submitted over HTTP.
type Server struct {
	port   string
	base   *config.Config
	logger *logging.Logger
	hub    *Hub
	jobs   *JobManager
	router *gin.Engine
}

// New wires the hub, job manager and routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	base := opts.Base
	if base == nil {
		base = &config.Config{}
	}
	port := opts.Port
	if port == "" {
		port = DefaultPort
	}

	hub := NewHub(logger)
	s := &Server{
		port:   port,
		base:   base,
		logger: logger,
		hub:    hub,
		jobs:   NewJobManager(opts.Launcher, hub, logger),
		router: gin.New(),
	}
	s.SetupRoutes(s.router)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Jobs returns the job manager.
func (s *Server) Jobs() *JobManager {
	return s.jobs
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully and
// waits for a running job to finish.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve listens on the configured port until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("Server starting", map[string]interface{}{
			"port": s.port,
			"pid":  os.Getpid(),
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Cancelled jobs fail, which ends their event streams before the
	// HTTP server waits on open connections.
	if err := s.jobs.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Jobs still running at shutdown: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}
