package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/config"
	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/httpserver"
	"github.com/blackmichael/reddit-analytics/internal/reddit"
	"github.com/blackmichael/reddit-analytics/internal/retry"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
	"github.com/blackmichael/reddit-analytics/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		UserAgent:    cfg.RedditUserAgent,
	}, reddit.Options{
		AuthURL:           cfg.RedditAuthURL,
		APIURL:            cfg.RedditAPIURL,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("create reddit client: %w", err)
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	collector := domain.NewCollectorService(client, policy, logger)

	scorer, err := sentiment.NewLexiconAnalyzer(cfg.SentimentCacheSize)
	if err != nil {
		return fmt.Errorf("create sentiment analyzer: %w", err)
	}

	var classifier analysis.Classifier
	if cfg.SentimentModelURL != "" {
		c, err := sentiment.NewTransformerClassifier(sentiment.TransformerOptions{
			BaseURL: cfg.SentimentModelURL,
			Model:   cfg.SentimentModel,
			Token:   cfg.SentimentModelToken,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("create transformer classifier: %w", err)
		}
		classifier = c
		logger.Info("transformer classifier enabled", "model", c.Model())
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runs domain.RunRepository
	if cfg.DatabasePath != "" {
		repo, err := sqlite.NewRepository(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("create repository: %w", err)
		}
		defer repo.Close()
		runs = repo
		logger.Info("opened run archive", "path", cfg.DatabasePath)

		go domain.StartCleanupJob(ctx, repo, logger, time.Hour, cfg.RunRetention)
	}

	analyzer := analysis.NewService(collector, scorer, classifier, runs, logger)

	server := httpserver.NewServer(cfg, analyzer, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
