// Package main runs the ticket triage server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rohitw3code/ticket-triage-agent/internal/checkpoint"
	"github.com/Rohitw3code/ticket-triage-agent/internal/config"
	"github.com/Rohitw3code/ticket-triage-agent/internal/engine"
	"github.com/Rohitw3code/ticket-triage-agent/internal/kb"
	"github.com/Rohitw3code/ticket-triage-agent/internal/llm"
	"github.com/Rohitw3code/ticket-triage-agent/internal/metrics"
	"github.com/Rohitw3code/ticket-triage-agent/internal/server"
)

func main() {
	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("starting triaged",
		"port", cfg.Port,
		"llm_provider", string(cfg.LLMProvider),
		"embed_provider", string(cfg.EmbedProvider),
	)

	collector := metrics.NewCollector()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	gateway, err := llm.NewGateway(ctx, cfg, logger, collector)
	if err != nil {
		cancel()
		slog.Error("failed to create reasoning gateway", "error", err)
		os.Exit(1)
	}

	index, err := kb.Load(ctx, cfg.KBPath, gateway, cfg.SimilarityThreshold, logger, collector)
	cancel()
	if err != nil {
		slog.Error("failed to load knowledge base", "error", err)
		os.Exit(1)
	}

	checkpoints := checkpoint.NewStore(cfg.CheckpointMax, cfg.CheckpointTTL, logger)
	eng := engine.New(index, gateway, checkpoints, cfg.MaxDescriptionLength, logger, collector)
	srv := server.New(eng, index, collector, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // long: LLM calls stream through
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
