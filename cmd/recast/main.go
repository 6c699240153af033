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

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/recastlabs/recast/internal/api"
	"github.com/recastlabs/recast/internal/auth"
	"github.com/recastlabs/recast/internal/backboard"
	"github.com/recastlabs/recast/internal/chatbot"
	"github.com/recastlabs/recast/internal/config"
	"github.com/recastlabs/recast/internal/events"
	"github.com/recastlabs/recast/internal/repurpose"
	"github.com/recastlabs/recast/internal/store"
	"github.com/recastlabs/recast/internal/tasks"
	"github.com/recastlabs/recast/internal/transcribe"
)

func main() {
	// .env is a dev convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("recast starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// OpenAI client: transcription and direct repurposing
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey)
	slog.Info("openai client ready", "model", cfg.OpenAIModel)

	transcriber := transcribe.New(llm, slog.Default())

	// Backboard (optional): profile memory, RAG repurposing, chatbot
	var bb *backboard.Client
	var indexer api.ProfileIndexer
	var relay api.ChatRelay
	if cfg.BackboardAPIKey != "" {
		bb = backboard.NewClient(cfg.BackboardAPIKey, cfg.BackboardAPIURL, cfg.BackboardLLMProvider, cfg.BackboardModel)
		indexer = backboard.NewIndexer(bb, slog.Default())
		relay = chatbot.New(bb, slog.Default())
		slog.Info("backboard client ready", "model", cfg.BackboardModel)
	} else {
		slog.Warn("backboard not configured, running without profile memory and chatbot")
	}

	repurposer := repurpose.New(llm, cfg.OpenAIModel, bb, slog.Default())

	// Auth service
	authClient := auth.NewClient(cfg.AuthURL)
	slog.Info("auth client ready", "url", cfg.AuthURL)

	// NATS (optional): lifecycle events for downstream consumers
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without lifecycle events")
	}

	runner := tasks.NewRunner(slog.Default(), 2*time.Minute)

	srv := api.NewServer(api.Deps{
		Logger:      slog.Default(),
		Scripts:     db,
		Profiles:    db,
		Transcriber: transcriber,
		Repurposer:  repurposer,
		Indexer:     indexer,
		Relay:       relay,
		Events:      publisher,
		Tasks:       runner,
		Sessions:    auth.RequireSession(authClient, slog.Default()),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("API server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("recast ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	runner.Wait()
	slog.Info("recast stopped")
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
