package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/artform"
	"server/internal/domain"
	"server/internal/gemini"
	"server/internal/generation"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/session"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.GeminiAPIKey == "" {
		logger.Fatal().Msg("GEMINI_API_KEY is required")
	}

	ctx := context.Background()

	catalog, err := artform.Load(filepath.Join(cfg.DataDir, "assets"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load art form catalog")
	}

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	// Session store: Postgres when configured, in-memory otherwise so local
	// development works without a database.
	var sessions domain.SessionRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		pgRepo := repo.NewSessionRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure schema")
		}
		sessions = pgRepo
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory session store")
		sessions = repo.NewMemoryRepository()
	}

	client := gemini.NewClient(gemini.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
		Logger:  &logger,
	})

	assembler := generation.NewAssembler(generation.NewCachedResolver(store))
	gateway := generation.NewGateway(client, store, logger)

	app := handlers.NewApp(catalog, sessions, assembler, gateway, store, cfg, logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	// Expired sessions are removed by an explicit background sweep.
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweeper := session.NewSweeper(sessions, store, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	go func() {
		logger.Info().Msgf("API listening on :%s (model %s)", cfg.Port, client.Model())
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
