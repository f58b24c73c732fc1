// Package main is the entry point for the PayGate API server.
//
// It loads configuration (environment, dotenv, SSM secret resolution), builds
// the Stripe client behind the resilience layer, wires the checkout and
// webhook handlers into the core chassis, and serves HTTP with graceful
// shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"paygate/internal/api/handlers"
	"paygate/internal/billing"
	"paygate/internal/config"
	"paygate/internal/core"
	"paygate/internal/external"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// SSM resolution is bypassed when APP_ENV=local; the provider is only
	// consulted for _SSM_PARAM pointers in deployed environments.
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadConfig(config.NewSSMProvider(region))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("paygate API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// The Stripe client's per-call timeout is the http.Client timeout; the
	// chassis request timeout is longer so upstream timeouts surface as 504s.
	stripeClient := external.NewStripeClient(
		&http.Client{Timeout: cfg.Stripe.Timeout},
		external.StripeClientConfig{
			SecretKey: cfg.Stripe.SecretKey.Unmask(),
			Logger:    logger,
		},
	)

	resolver := billing.NewResolver(cfg.Stripe.PriceIDs, stripeClient)
	intentSvc := billing.NewIntentService(resolver, stripeClient, cfg.Stripe.SetupFutureUsageOffSession, logger)
	subSvc := billing.NewSubscriptionService(stripeClient, cfg.Stripe.SubscriptionPriceID, cfg.Stripe.TrialDays, logger)

	checkoutHandler := handlers.NewCheckoutHandler(intentSvc, subSvc, cfg.Stripe, srv.Validator, logger)
	webhookHandler := handlers.NewWebhookHandler(&external.StripeVerifier{}, cfg.Stripe.WebhookSecret, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		func(r chi.Router) { checkoutHandler.RegisterRoutes(r) },
		func(r chi.Router) { webhookHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
