package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nathanieltooley/pokebattle/api"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/nathanieltooley/pokebattle/bot"
	"github.com/nathanieltooley/pokebattle/global"
	"github.com/nathanieltooley/pokebattle/pokeapi"
	"github.com/nathanieltooley/pokebattle/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DEMO_TRAINER_NAME    = "ash"
	DEMO_TRAINER_DISCORD = "demo"

	JANITOR_INTERVAL = time.Minute
	SHUTDOWN_TIMEOUT = 10 * time.Second
)

func openStorage(ctx context.Context, config global.GlobalConfig) (storage.Storage, error) {
	if config.DatabaseURL != "" {
		log.Info().Msg("Using postgres storage")
		return storage.OpenPostgres(ctx, config.DatabaseURL)
	}

	log.Info().Msg("No database configured, using in-memory storage")
	store := storage.NewMemoryStorage()
	user, err := storage.SeedDemoTrainer(ctx, store, DEMO_TRAINER_NAME, DEMO_TRAINER_DISCORD)
	if err != nil {
		return nil, err
	}
	log.Info().Int("userId", user.ID).Str("discordId", user.DiscordID).Msg("Seeded demo trainer")

	return store, nil
}

func run(ctx context.Context, config global.GlobalConfig, logger zerolog.Logger) error {
	store, err := openStorage(ctx, config)
	if err != nil {
		return err
	}
	defer store.Close()

	provider := pokeapi.NewClient(pokeapi.Config{
		BaseURL:  config.PokeAPIBaseURL,
		Timeout:  config.RequestTimeout(),
		CacheTTL: config.CacheTTL(),
		Retries:  config.FetchRetries,
	}, logger)

	service := battle.NewService(store, provider,
		battle.WithDice(global.NewDice(config)),
		battle.WithOpponentDelay(config.OpponentDelay()),
		battle.WithTTL(config.BattleTTL()),
	)
	go service.RunJanitor(ctx, JANITOR_INTERVAL)

	router := api.NewServer(service, store, bot.New(store, service, logger), logger, api.Options{
		DefaultUserID: config.DefaultUserID,
		StartTimeout:  config.RequestTimeout(),
	})

	server := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", config.ListenAddr).Msg("Battle server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Int("activeBattles", service.ActiveBattles()).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func main() {
	config, err := global.LoadConfig(global.DefaultConfigLocation())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		config = global.DefaultConfig()
	}

	logger := global.InitFromConfig(config, "server.log")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
	log.Info().Msg("Server stopped")
}
