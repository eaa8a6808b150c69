package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nnamdiokafor/linkqr/internal/account"
	"github.com/nnamdiokafor/linkqr/internal/auth"
	"github.com/nnamdiokafor/linkqr/internal/config"
	"github.com/nnamdiokafor/linkqr/internal/httpx"
	"github.com/nnamdiokafor/linkqr/internal/shortlink"
)

// Handlers groups the HTTP handlers the server routes to.
type Handlers struct {
	Auth     *auth.Handler
	Accounts *account.Handler
	Links    *shortlink.Handler
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handlers Handlers
	guard    auth.Service // decodes bearer tokens for the route middleware
	server   *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handlers Handlers, guard auth.Service) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
		guard:    guard,
	}
}

// Handler builds the route table wrapped in the full middleware chain.
// Start serves it; tests can drive it directly.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	// Listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		// Attempt graceful shutdown
		if err := s.server.Shutdown(ctx); err != nil {
			// Force close if graceful shutdown fails
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	requireUser := auth.RequireUser(s.guard)
	requireAdmin := auth.RequireAdmin(s.guard)

	// Health check endpoint
	mux.HandleFunc("GET /healthz", s.healthCheckHandler)

	// Auth endpoints
	mux.HandleFunc("POST /api/auth/register", s.handlers.Accounts.Register)
	mux.HandleFunc("POST /api/auth/login", s.handlers.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", s.handlers.Auth.Refresh)

	// Authenticated endpoints
	mux.Handle("GET /api/me", requireUser(http.HandlerFunc(s.handlers.Accounts.Me)))
	mux.Handle("GET /api/links", requireUser(http.HandlerFunc(s.handlers.Links.List)))
	mux.Handle("POST /api/links", requireUser(http.HandlerFunc(s.handlers.Links.Create)))
	mux.Handle("GET /api/links/{id}", requireUser(http.HandlerFunc(s.handlers.Links.Get)))
	mux.Handle("PUT /api/links/{id}", requireUser(http.HandlerFunc(s.handlers.Links.Update)))
	mux.Handle("DELETE /api/links/{id}", requireUser(http.HandlerFunc(s.handlers.Links.Delete)))
	mux.Handle("GET /api/admin/links", requireAdmin(http.HandlerFunc(s.handlers.Links.AdminList)))

	// Public redirect
	mux.HandleFunc("GET /r/{slug}", s.handlers.Links.Resolve)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger),                   // Outermost: catch panics
		httpx.RequestID,                            // Add request ID
		httpx.Logger(s.logger),                     // Log requests
		httpx.CORS(s.config.Server.AllowedOrigins), // CORS headers
	)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"env":    s.config.App.Environment,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
