package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"football-odds-engine/internal/alerts"
	"football-odds-engine/internal/api"
	"football-odds-engine/internal/config"
	"football-odds-engine/internal/engine"
	"football-odds-engine/internal/provider"
	"football-odds-engine/internal/server"
	"football-odds-engine/internal/store"
)

func newProvider(cfg config.Config) provider.Provider {
	if cfg.Provider == config.ProviderHTTP {
		client := api.NewClient(cfg.RequestsPerMinute, api.DefaultTimeout)
		return provider.NewHTTPProvider(cfg.ProviderURL, client)
	}
	return provider.NewFileProvider(cfg.ProviderDir)
}

func main() {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	overrides, err := config.LoadWidthOverrides(cfg.DrawWidthsFile)
	if err != nil {
		log.Fatalf("Loading draw widths: %v", err)
	}

	// A broken database only costs persistence; pricing keeps running.
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		slog.Warn("DB disabled", "driver", cfg.DBDriver, "err", err)
		db = nil
	} else {
		defer db.Close()
	}

	notifier := alerts.NewNotifier(cfg.AlertCooldown)
	if cfg.TelegramToken != "" {
		sender, err := alerts.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			slog.Warn("Telegram alerts disabled", "err", err)
		} else {
			notifier.WithSender(sender)
			slog.Info("Telegram alerts enabled", "chat_id", cfg.TelegramChatID)
		}
	}

	eng := engine.New(newProvider(cfg), notifier, db, cfg, overrides)

	slog.Info("Starting odds engine",
		"leagues", strings.Join(cfg.Leagues, ","),
		"provider", cfg.Provider,
		"ev_threshold", cfg.EVThreshold,
		"kelly", cfg.KellyFraction,
		"margin_mode", cfg.MarginMode,
		"draw_width", cfg.DrawWidth,
		"rho", cfg.Rho,
		"poll", cfg.PollInterval,
		"overrides", len(overrides),
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, stopping...")
		cancel()
	}()

	go func() {
		h := server.NewHandler(eng, db)
		if err := server.ListenAndServe(ctx, ":"+cfg.Port, h.Routes()); err != nil {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	eng.Run(ctx)
	slog.Info("Odds engine stopped")
}
