package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/config"
	"github.com/DoyleJ11/hoops-draft-backend/internal/contest"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/internal/httpapi"
	"github.com/DoyleJ11/hoops-draft-backend/internal/hub"
	"github.com/DoyleJ11/hoops-draft-backend/internal/logging"
	"github.com/DoyleJ11/hoops-draft-backend/internal/oracle"
	"github.com/DoyleJ11/hoops-draft-backend/internal/store"
	"github.com/DoyleJ11/hoops-draft-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	archive, err := openArchive(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules := engine.DefaultRules()
	rules.InitialBudget = cfg.InitialBudget

	h := hub.NewHub(ctx, hub.Config{
		CodeLength: cfg.RoomCodeLength,
		Rules:      rules,
		Catalog:    cat,
		Contest:    newOrchestrator(cfg, logger),
		Archive:    archive,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:     h,
			Catalog: cat,
			Logger:  logger,
			WS:      ws.Options{OriginPatterns: cfg.AllowedOrigins},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			h.Shutdown(shutdownCtx),
			archive.Close(),
		)
	})
	return g.Wait()
}

func openArchive(cfg *config.Config, logger *zap.Logger) (store.Archive, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, series results are not archived")
		return store.NopArchive{}, nil
	}
	a, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return a, nil
}

func newOrchestrator(cfg *config.Config, logger *zap.Logger) *contest.Orchestrator {
	opts := []contest.Option{
		contest.WithRetry(cfg.OracleRetries, cfg.OracleBackoff),
		contest.WithTimeout(cfg.OracleTimeout),
	}
	if cfg.OracleURL == "" {
		logger.Info("ORACLE_URL not set, contests use the local model")
		return contest.New(logger, opts...)
	}

	client := oracle.NewClient(cfg.OracleURL, logger)
	switch cfg.OracleMode {
	case config.OracleModeSeries:
		opts = append(opts, contest.WithSeriesOracle(client))
	default:
		opts = append(opts, contest.WithGameOracle(client))
	}
	logger.Info("oracle configured", zap.String("url", cfg.OracleURL), zap.String("mode", string(cfg.OracleMode)))
	return contest.New(logger, opts...)
}
