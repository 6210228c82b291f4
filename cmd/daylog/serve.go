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

	"golang.org/x/sync/errgroup"

	"github.com/ashureev/daylog/internal/api"
	"github.com/ashureev/daylog/internal/config"
	"github.com/ashureev/daylog/internal/console"
	"github.com/ashureev/daylog/internal/delivery"
	"github.com/ashureev/daylog/internal/discord"
	"github.com/ashureev/daylog/internal/flow"
	"github.com/ashureev/daylog/internal/session"
)

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	slog.Info("Starting daylog", "port", cfg.Port, "targets", cfg.Targets(), "console", cfg.ConsoleEnabled)

	// Initialize dependencies.
	tracker := session.NewTracker()
	dispatcher := delivery.NewDispatcher(delivery.Config{
		WebhookURL:     cfg.Delivery.WebhookURL,
		WebhookSecret:  cfg.Delivery.WebhookSecret,
		WebhookTimeout: cfg.Delivery.WebhookTimeout,
		FilePath:       cfg.Delivery.FilePath,
	}, logger)

	bot, err := discord.New(discord.Config{
		Token:            cfg.DiscordToken,
		GuildID:          cfg.GuildID,
		SummaryChannelID: cfg.SummaryChannelID,
		CommandPrefix:    cfg.CommandPrefix,
	}, logger)
	if err != nil {
		return err
	}

	engine := flow.NewEngine(tracker, dispatcher, flow.Options{
		ReplyTimeout: cfg.ReplyTimeout,
		Announcer:    bot.Announcer(),
		Logger:       logger,
	})
	defer engine.Close()

	if err := bot.Open(ctx, engine); err != nil {
		slog.Error("Failed to connect to Discord", "error", err)
		return err
	}
	defer func() {
		if closeErr := bot.Close(); closeErr != nil {
			slog.Error("Failed to close Discord session", "error", closeErr)
		}
	}()
	slog.Info("Discord gateway connected")

	// Setup router.
	var consoleHandler http.Handler
	if cfg.ConsoleEnabled {
		consoleHandler = console.NewHandler(engine, cfg.CommandPrefix, cfg.ConsoleOrigins...)
		slog.Info("WebSocket console enabled", "path", "/ws/console")
	}
	status := api.NewStatusHandler(tracker, bot, cfg.Targets())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(status, consoleHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // console sockets are long-lived
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stop()

		slog.Info("Shutting down gracefully...", "active_sessions", tracker.Len())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		return err
	}

	slog.Info("Server stopped successfully")
	return nil
}
