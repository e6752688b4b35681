package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/session"
	"server/internal/storage"
)

// Standalone maintenance binary: sweeps expired sessions and their blob
// files. Runs once by default; -loop keeps it running on the configured
// interval for deployments without the API process.
func main() {
	var loop bool
	flag.BoolVar(&loop, "loop", false, "keep sweeping on the configured interval")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("sweeper: DATABASE_URL is required, in-memory sessions have nothing to sweep")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: failed to configure storage")
	}

	sessions := repo.NewSessionRepository(pool)
	sweeper := session.NewSweeper(sessions, store, cfg.SweepInterval, logger)

	if !loop {
		removed, err := sweeper.SweepOnce(ctx, time.Now())
		if err != nil {
			logger.Fatal().Err(err).Msg("sweeper: sweep failed")
		}
		logger.Info().Int("blobs", removed).Msg("sweeper: done")
		return
	}

	logger.Info().Dur("interval", cfg.SweepInterval).Msg("sweeper: running")
	sweeper.Run(ctx)
}
