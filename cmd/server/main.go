// Pregame Discovery Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pregamehq/discovery-server/internal/api"
	"github.com/pregamehq/discovery-server/internal/config"
	"github.com/pregamehq/discovery-server/internal/discovery"
	"github.com/pregamehq/discovery-server/internal/live"
	"github.com/pregamehq/discovery-server/internal/middleware"
	"github.com/pregamehq/discovery-server/internal/research"
	"github.com/pregamehq/discovery-server/internal/store"
	"github.com/pregamehq/discovery-server/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	researcher := research.NewClient(research.ClientConfig{
		BaseURL:        cfg.Research.BaseURL,
		APIKey:         cfg.Research.APIKey,
		RequestTimeout: cfg.Research.RequestTimeout,
		MaxAttempts:    cfg.Research.MaxAttempts,
	}, logger)

	// The research provider being down at boot is not fatal; sessions started
	// before it comes back will fail individually with a clear error.
	if err := researcher.Health(context.Background()); err != nil {
		slog.Warn("Research provider unreachable at startup", "url", cfg.Research.BaseURL, "error", err)
	} else {
		slog.Info("Research provider connected", "url", cfg.Research.BaseURL)
	}

	// Root context drives in-flight sessions during shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services.
	hub := live.NewHub()
	engine := discovery.NewEngine(researcher, cfg.Discovery, logger)
	publisher := discovery.NewPublisher(repo, logger)
	orchestrator := discovery.NewOrchestrator(ctx, engine, publisher, hub, cfg.Discovery.MaxConcurrentSessions, logger)

	// Initialize handlers.
	discoveryHandler := api.NewDiscoveryHandler(orchestrator)
	profileHandler := api.NewProfileHandler(repo)
	healthHandler := api.NewHealthHandler(repo, researcher)
	wsHandler := live.NewWebSocketHandler(hub, orchestrator)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	allowedOrigins := []string{cfg.FrontendURL}
	if cfg.IsDevelopment() {
		allowedOrigins = []string{"*"}
	}
	r.Use(middleware.CORS(allowedOrigins))

	healthHandler.RegisterHealth(r)
	discoveryHandler.RegisterRoutes(r)
	profileHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/discovery/{sessionID}", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket streams need long-lived writes, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
