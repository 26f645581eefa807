// Package main provides the legal-rag server: MCP over stdio or HTTP, plus the JSON API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/legal-rag/internal/app"
	"github.com/bull/legal-rag/internal/config"
	mcpserver "github.com/bull/legal-rag/internal/mcp"
	"github.com/bull/legal-rag/internal/server"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	envErr := godotenv.Load()

	// stdout carries the MCP stream in stdio mode, so logs always go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	res, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	if err := res.Verify(ctx); err != nil {
		return fmt.Errorf("startup verification failed: %w", err)
	}

	var pipelineState mcpserver.StateReader
	if cfg.Index.Backend == config.BackendMemory {
		source, err := res.Source()
		if err != nil {
			return err
		}
		pipeline := res.Pipeline(source)
		pipelineState = pipeline

		// The in-memory index starts empty; fill it while already serving.
		go func() {
			result, err := pipeline.Run(ctx)
			if err != nil {
				logger.Error("startup ingestion failed", "error", err)
				return
			}
			logger.Info("startup ingestion complete", "chunks", result.Committed, "duration", result.Duration)
		}()
	}

	mcp := mcpserver.NewServer(&mcpserver.Config{
		Answerer:        res.Answerer,
		Index:           res.Index,
		Collection:      cfg.Index.Collection,
		TopK:            cfg.Index.TopK,
		EmbeddingModel:  res.Embedder.Model(),
		GenerationModel: res.Generator.Model(),
		Pipeline:        pipelineState,
		Version:         version,
		Logger:          logger,
	})

	httpServer := server.New(server.Config{
		Answerer:   res.Answerer,
		Index:      res.Index,
		Collection: cfg.Index.Collection,
		TopK:       cfg.Index.TopK,
		Metrics:    res.Metrics,
		MCP:        mcpserver.NewHTTPHandler(mcp, &mcpserver.HTTPHandlerOptions{Stateless: true}),
		Logger:     logger,
	})
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)

	if cfg.Server.Mode == config.ModeHTTP {
		logger.Info("starting legal-rag server", "mode", cfg.Server.Mode, "version", version)
		return httpServer.Run(ctx, addr)
	}

	// Stdio mode: the HTTP endpoints stay available in the background for health checks
	go func() {
		if err := httpServer.Run(ctx, addr); err != nil {
			logger.Warn("background HTTP server stopped", "error", err)
		}
	}()

	logger.Info("starting legal-rag MCP server", "mode", cfg.Server.Mode, "version", version)
	return mcp.Run(ctx)
}
