// Parley - conversational agent backend
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

	"github.com/parleylabs/parley/internal/api"
	"github.com/parleylabs/parley/internal/config"
	"github.com/parleylabs/parley/internal/middleware"
	"github.com/parleylabs/parley/internal/models"
	"github.com/parleylabs/parley/internal/provider"
	"github.com/parleylabs/parley/internal/session"
	"github.com/parleylabs/parley/internal/store"
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
	slog.Info("Database connected")

	gateway, err := buildGateway(cfg)
	if err != nil {
		slog.Error("Failed to initialize provider gateway", "error", err)
		os.Exit(1)
	}

	// Session registry is constructed here and handed to the handlers; its
	// lifetime equals the process lifetime.
	sessions := session.NewManager(repo, gateway, cfg.SystemPrompt)
	handler := api.NewHandler(sessions, repo, cfg.MaxUploadSize)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	allowedOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(allowedOrigins))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // model calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

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

// buildGateway wires one gateway client per configured provider behind the
// router. The service refuses to start with no providers at all.
func buildGateway(cfg *config.Config) (provider.Gateway, error) {
	if !cfg.HasAnyProvider() {
		return nil, errors.New("no provider API keys configured (set OPENROUTER_API_KEY, DEEPSEEK_API_KEY, or GEMINI_API_KEY)")
	}

	router := provider.NewRouter()

	if key := cfg.Providers.OpenRouterAPIKey; key != "" {
		base := cfg.Providers.OpenRouterBaseURL
		if base == "" {
			base = provider.OpenRouterBaseURL
		}
		router.Register(models.ProviderOpenRouter, provider.NewOpenAIClient(base, key))
		slog.Info("Provider enabled", "provider", models.ProviderOpenRouter)
	}
	if key := cfg.Providers.DeepSeekAPIKey; key != "" {
		base := cfg.Providers.DeepSeekBaseURL
		if base == "" {
			base = provider.DeepSeekBaseURL
		}
		router.Register(models.ProviderDeepSeek, provider.NewOpenAIClient(base, key))
		slog.Info("Provider enabled", "provider", models.ProviderDeepSeek)
	}
	if key := cfg.Providers.GeminiAPIKey; key != "" {
		gemini, err := provider.NewGeminiClient(context.Background(), key)
		if err != nil {
			return nil, err
		}
		router.Register(models.ProviderGemini, gemini)
		slog.Info("Provider enabled", "provider", models.ProviderGemini)
	}

	return router, nil
}
