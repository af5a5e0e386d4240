package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-data/meridian/internal/app"
	"github.com/meridian-data/meridian/internal/archive"
	"github.com/meridian-data/meridian/internal/ledger"
	ledgerhttp "github.com/meridian-data/meridian/internal/ledger/http"
	"github.com/meridian-data/meridian/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	initialSupply, err := ledger.ParseAmount(cfg.InitialSupply)
	if err != nil {
		logger.Error("parse initial supply", slog.Any("error", err))
		os.Exit(1)
	}
	book, err := ledger.New(ledger.Genesis{
		AdminAccount:    cfg.AdminAccount,
		PlatformAccount: cfg.PlatformAccount,
		PlatformFeeBps:  cfg.PlatformFeeBps,
		DefaultTerm:     cfg.LicenseTerm(),
		InitialSupply:   initialSupply,
	})
	if err != nil {
		logger.Error("ledger genesis", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	book.Subscribe(metrics.EventObserver())

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// The event log lives in memory and restarts at sequence one, so
	// archive rows and the checkpoint are scoped to this run.
	runID := uuid.NewString()
	writer := archive.NewPGWriter(pool, runID)
	if err := writer.EnsureSchema(ctx); err != nil {
		logger.Error("ensure archive schema", slog.Any("error", err))
		os.Exit(1)
	}
	archiver := archive.NewArchiver(
		book,
		writer,
		archive.NewRedisCheckpoint(redisClient, runID),
		logger,
		cfg.ArchiveInterval,
		cfg.ArchiveBatch,
	)
	logger.Info("archive run", slog.String("run_id", runID))

	handler := ledgerhttp.NewHandler(book, metrics, logger, cfg.TokenDecimals)
	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: handler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := archiver.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("stopped cleanly")
}
