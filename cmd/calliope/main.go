package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/antoniostano/calliope/internal/archive"
	"github.com/antoniostano/calliope/internal/assistant"
	"github.com/antoniostano/calliope/internal/config"
	"github.com/antoniostano/calliope/internal/guardrails"
	"github.com/antoniostano/calliope/internal/history"
	"github.com/antoniostano/calliope/internal/httpapi"
	"github.com/antoniostano/calliope/internal/observability"
	"github.com/antoniostano/calliope/internal/prompt"
	"github.com/antoniostano/calliope/internal/upstream"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace, nil)

	ctx := context.Background()
	transcript, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("transcript archive init failed", "error", err)
		os.Exit(1)
	}
	defer transcript.Close()

	prompts, err := prompt.NewBuilder(cfg.PromptsDir)
	if err != nil {
		logger.Error("prompt builder init failed", "error", err)
		os.Exit(1)
	}

	memory := history.NewStore(cfg.HistorySize, cfg.RetentionWindow)
	memory.SetSweepHook(func(removed int) {
		metrics.SweptSessions.Add(float64(removed))
		metrics.LiveSessions.Set(float64(memory.Len()))
	})

	client := upstream.NewClient(upstream.Config{
		BaseURL:     cfg.UpstreamBaseURL,
		Timeout:     cfg.UpstreamTimeout,
		MaxAttempts: cfg.UpstreamMaxAttempts,
		BackoffMin:  cfg.BackoffMin,
		BackoffMax:  cfg.BackoffMax,
		Logger:      logger,
		Observer:    metrics,
	})

	gate := guardrails.NewGate(guardrails.DefaultRules(), cfg.SanitizeMaxLen)

	svc := assistant.New(assistant.Config{
		Model:         cfg.Model,
		MaxReplyWords: cfg.MaxReplyWords,
	}, gate, memory, prompts, client, transcript, metrics, logger)

	api := httpapi.New(cfg, svc, prompts, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	memory.StartJanitor(runCtx, cfg.SweepInterval)

	go func() {
		logger.Info("server listening", "addr", cfg.BindAddr, "app", cfg.AppName, "version", cfg.AppVersion)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
