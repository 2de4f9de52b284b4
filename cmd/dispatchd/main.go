package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetvoice/dispatchd/internal/anthropic"
	"github.com/fleetvoice/dispatchd/internal/api"
	"github.com/fleetvoice/dispatchd/internal/config"
	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/events"
	"github.com/fleetvoice/dispatchd/internal/extraction"
	"github.com/fleetvoice/dispatchd/internal/notify"
	"github.com/fleetvoice/dispatchd/internal/scenario"
	"github.com/fleetvoice/dispatchd/internal/store"
	"github.com/fleetvoice/dispatchd/internal/turn"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("dispatchd starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scenario registry — a graph error here is a configuration fault.
	registry, err := scenario.NewRegistry()
	if err != nil {
		slog.Error("invalid scenario configuration", "error", err)
		os.Exit(1)
	}

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// Conversation core
	convos := convo.NewStore(slog.Default())
	turns := turn.NewProcessor(convos, registry, llm, cfg.TurnLLMTimeout, slog.Default())

	// Post-call extraction pipeline
	rules := extraction.NewRuleBased()
	generative := extraction.NewGenerative(llm, registry, cfg.ExtractTimeout, slog.Default())
	pipeline := extraction.NewPipeline(rules, generative, slog.Default())

	// NATS
	natsClient, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Slack poster (optional, calls run fine without the dispatch channel)
	var slackPoster *notify.Poster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		slackPoster = notify.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, escalation alerts stay on the event bus only")
	}

	// Event processor, the call lifecycle pipeline
	proc := events.New(convos, turns, pipeline, registry, db, db, natsClient, slackPoster, slog.Default())

	if err := natsClient.Subscribe(events.SubjectCallStarted, proc.HandleCallStarted); err != nil {
		slog.Error("failed to subscribe to call-started events", "error", err)
		os.Exit(1)
	}
	if err := natsClient.SubscribeReply(events.SubjectCallTurn, proc.HandleCallTurn); err != nil {
		slog.Error("failed to subscribe to turn events", "error", err)
		os.Exit(1)
	}
	if err := natsClient.Subscribe(events.SubjectCallEnded, proc.HandleCallEnded); err != nil {
		slog.Error("failed to subscribe to call-ended events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, registry, convos)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := natsClient.Publish("voice.service.dispatchd.registered", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"scenarios": registry.List(),
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("dispatchd ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down", "active_calls", convos.ActiveCalls())
	cancel()
	slog.Info("dispatchd stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
