package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/scenestudio/scene-studio-bot/config"
	"github.com/scenestudio/scene-studio-bot/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal().Msg("BOT_TOKEN is not set")
	}

	tg, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// The store is optional: without SCENE_KEY_SECRET the bot runs with
	// history and per-user API keys disabled.
	var store storage.HistoryStore
	if keySecret := os.Getenv("SCENE_KEY_SECRET"); keySecret != "" {
		dbPath := os.Getenv("SCENE_DB_PATH")
		if dbPath == "" {
			dbPath = "scene-studio.db"
		}
		sqliteStore, err := storage.NewSQLiteStore(dbPath, storage.DeriveKey(keySecret))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize store")
		}
		defer sqliteStore.Close()
		store = sqliteStore
		log.Info().Str("dbPath", dbPath).Msg("history store initialized")
	} else {
		log.Warn().Msg("SCENE_KEY_SECRET not set, history and per-user api keys disabled")
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, users must provide their own key via /apikey")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(ctx, tg, store)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, store storage.HistoryStore) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := NewBot(tg, store)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
