// Package server wires handlers, middleware, and routes into an HTTP server.
// It is the composition root: every dependency in the
// database, repository, service, and handler chain is assembled here.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/intentflow/backend/internal/auth"
	"github.com/intentflow/backend/internal/config"
	"github.com/intentflow/backend/internal/handler"
	"github.com/intentflow/backend/internal/middleware"
	sqliteRepo "github.com/intentflow/backend/internal/repository/sqlite"
	"github.com/intentflow/backend/internal/service"
)

// Server owns the router, the database connection, and the server lifecycle.
// The database is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server and assembles the full dependency graph.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// Route map:
//
//	POST /auth/register           register, returns token + user
//	POST /auth/login              password login
//	GET  /auth/github/login       redirect to the identity provider
//	GET  /auth/github/callback    OAuth callback, issues the same token
//	GET  /user                    own record            (bearer)
//	PUT  /user                    own profile update    (bearer)
//	POST /download                issue download link   (bearer)
//	GET  /download/file           redeem download token
//	GET  /admin/users             list accounts         (bearer+admin)
//	PUT  /admin/users             edit any account      (bearer+admin)
//	DELETE /admin/users           delete any account    (bearer+admin)
//	GET  /healthz                 liveness probe
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.NotFound(handler.NotFoundRoute)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	tokens, err := auth.NewTokenService(
		s.config.JWT.Secret,
		s.config.JWT.Issuer,
		s.config.JWT.AccessTTL,
		s.config.JWT.DownloadTTL,
	)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHub.ClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}

	authSvc := service.NewAuthService(s.db, tokens, passwords, s.logger)
	userSvc := service.NewUserService(s.db, s.logger)
	downloadSvc := service.NewDownloadService(
		s.db, tokens, s.config.App.BaseURL, s.config.JWT.DownloadTTL, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, github, s.logger)
	userHandler := handler.NewUserHandler(userSvc, s.logger)
	adminHandler := handler.NewAdminHandler(userSvc, s.logger)
	downloadHandler := handler.NewDownloadHandler(downloadSvc, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/user", userHandler.HandleGet)
		r.Put("/user", userHandler.HandleUpdate)
		r.Post("/download", downloadHandler.HandleIssue)
	})

	// Redemption is authenticated by the download token itself.
	s.router.Get("/download/file", downloadHandler.HandleFile)

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Use(auth.RequireAdmin)
		r.Get("/users", adminHandler.HandleList)
		r.Put("/users", adminHandler.HandleUpdate)
		r.Delete("/users", adminHandler.HandleDelete)
	})

	return nil
}

// Handler exposes the router, mainly for httptest in handler tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.App.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.App.Port),
			slog.String("env", s.config.App.Env),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
