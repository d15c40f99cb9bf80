package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ceiba/internal/adapter/store"
	"ceiba/internal/auth"
	"ceiba/internal/http/handlers"
	httpapi "ceiba/internal/http/httpapi"
	"ceiba/internal/infra"
	"ceiba/internal/infra/github"
	"ceiba/internal/jobs"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	collections, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	if cfg.UsersFile != "" {
		logins, err := auth.LoadUsersFile(cfg.UsersFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read users file")
		}
		added, err := auth.NewUsers(collections, logger).Import(ctx, logins)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to import users")
		}
		logger.Info().Int("added", added).Int("listed", len(logins)).Msg("users imported")
	}

	gate := auth.NewCookieGate(collections, cfg.TokenTTL, logger)
	app := &handlers.App{
		Controller: jobs.NewController(collections, gate, logger, jobs.Options{StrictTransitions: cfg.StrictTransitions}),
		Queries:    jobs.NewQueries(collections, logger),
		Sessions:   auth.NewSessions(collections, github.NewClient(cfg.GitHubAPIURL), logger),
		Store:      collections,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("driver", cfg.StoreDriver).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
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
