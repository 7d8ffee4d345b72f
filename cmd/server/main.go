// Gatekeeper - member verification bot
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

	"github.com/ashureev/gatekeeper/internal/access"
	"github.com/ashureev/gatekeeper/internal/api"
	"github.com/ashureev/gatekeeper/internal/config"
	"github.com/ashureev/gatekeeper/internal/platform/discord"
	"github.com/ashureev/gatekeeper/internal/session"
	"github.com/ashureev/gatekeeper/internal/store"
	"github.com/ashureev/gatekeeper/internal/telemetry"
	"github.com/ashureev/gatekeeper/internal/verify"
	"github.com/ashureev/gatekeeper/internal/webhook"
	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting gatekeeper",
		"port", cfg.Port,
		"webhook_enabled", cfg.WebhookEnabled(),
		"questions", len(cfg.Locale.Questions),
		"verify_channel", cfg.Locale.VerifyChannel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "gatekeeper", cfg.OTelEndpoint)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

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

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		os.Exit(1)
	}
	client := discord.NewClient(dg, logger)

	// Initialize services.
	sessions := session.NewStore()
	svc, err := verify.NewService(verify.Deps{
		Store:    sessions,
		Platform: client,
		Granter:  access.NewGranter(client, cfg.Locale.RoleName, logger),
		Webhook:  webhook.NewSink(cfg.WebhookURL, cfg.WebhookTimeout, logger),
		Ledger:   repo,
		Locale:   cfg.Locale,
		Logger:   logger,
	})
	if err != nil {
		slog.Error("Failed to initialize verification service", "error", err)
		os.Exit(1)
	}

	gateway := discord.NewGateway(dg, svc, discord.GatewayConfig{
		RegisterCommands:   cfg.RegisterCommands,
		CommandDescription: cfg.Locale.Text.CommandDescription,
	}, logger)
	if err := gateway.Open(); err != nil {
		slog.Error("Failed to connect to Discord", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			slog.Error("Failed to close Discord gateway", "error", err)
		}
	}()

	session.StartSweeper(ctx, sessions, cfg.SessionTTL, cfg.SweepInterval, svc.NotifyExpired)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, svc)
	healthHandler := api.NewHealthHandler(baseHandler)
	adminHandler := api.NewAdminHandler(baseHandler, cfg.AdminToken)

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	healthHandler.RegisterHealth(r)
	adminHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Admin API listening", "addr", srv.Addr, "auth", cfg.AdminToken != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...", "active_sessions", svc.ActiveSessions())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}
