package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/hunts/internal/access"
	"github.com/playperu/hunts/internal/ai"
	"github.com/playperu/hunts/internal/answer"
	"github.com/playperu/hunts/internal/assets"
	"github.com/playperu/hunts/internal/config"
	"github.com/playperu/hunts/internal/database"
	"github.com/playperu/hunts/internal/handler/health"
	"github.com/playperu/hunts/internal/migrations"
	"github.com/playperu/hunts/internal/play"
	"github.com/playperu/hunts/internal/publishing"
	"github.com/playperu/hunts/internal/server"
	"github.com/playperu/hunts/internal/storage"
	"github.com/playperu/hunts/internal/sweeper"
	"github.com/playperu/hunts/internal/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Tracing ---
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", applied)

	store := storage.New(db)
	checks := map[string]health.Checker{
		"sqlite": health.CheckFunc(store.Ping),
	}

	// --- Asset bucket ---
	var s3Client *s3.Client
	if cfg.S3.Bucket != "" {
		s3Client, err = assets.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("creating s3 client: %w", err)
		}
		logger.Info("asset storage enabled", "bucket", cfg.S3.Bucket)
	} else {
		logger.Warn("S3_BUCKET not set, media uploads are disabled")
	}
	assetStore := assets.NewService(store, s3Client, cfg.S3.Bucket)
	if s3Client != nil {
		checks["bucket"] = assetStore
	}

	// --- AI grading ---
	var grader answer.AIValidator
	if cfg.GeminiAPIKey != "" {
		v, err := ai.NewValidator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("creating ai validator: %w", err)
		}
		defer v.Close()
		grader = v
		logger.Info("ai grading enabled", "model", cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI-graded answers are accepted without review")
	}

	// --- Services ---
	acc := access.NewService(store)
	pub := publishing.NewService(store, acc, logger)
	answers := answer.NewRegistry(assetStore, grader, cfg.AITimeout, logger)
	engine := play.NewEngine(store, acc, acc, answers, logger)

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, store, pub); err != nil {
			return fmt.Errorf("seeding demo: %w", err)
		}
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Services{
		Store:      store,
		Access:     acc,
		Publishing: pub,
		Play:       engine,
		Assets:     assetStore,
		Checks:     checks,
	}, cfg.SPADir)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	if cfg.SessionIdleTimeout > 0 {
		sw := sweeper.New(store, cfg.SessionIdleTimeout, logger)
		g.Go(func() error {
			logger.Info("starting session sweeper", "idle_timeout", cfg.SessionIdleTimeout, "interval", cfg.SweepInterval)
			return sw.Run(gctx, cfg.SweepInterval)
		})
	}

	return g.Wait()
}
