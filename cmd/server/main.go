package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/donok1/wedding-quiz/internal/config"
	"github.com/donok1/wedding-quiz/internal/db"
	"github.com/donok1/wedding-quiz/internal/natsbus"
	"github.com/donok1/wedding-quiz/internal/questions"
	"github.com/donok1/wedding-quiz/internal/redisstore"
	"github.com/donok1/wedding-quiz/internal/server"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	cfg := config.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	quiz, err := questions.Load(cfg.QuestionsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.QuestionsPath).Msg("failed to load questions")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open room store")
	}
	defer closeStore()

	if cfg.NATSURL != "" {
		nc, err := natsbus.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Str("nats_url", cfg.NATSURL).Msg("failed to connect to NATS")
		}
		defer nc.Drain()
		if _, native := st.(store.Subscriber); !native {
			st = store.WithNotifier(st, natsbus.New(nc))
		}
	}

	srv := server.New(st, quiz, cfg)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Info().
		Str("addr", httpServer.Addr).
		Str("backend", cfg.StoreBackend).
		Int("questions", len(quiz)).
		Msg("wedding quiz server starting")

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("wedding quiz server stopped")
}

// openStore builds the configured backend and returns a func releasing it.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		conn, err := db.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(conn); err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := conn.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return db.NewRoomStore(conn), closeDB, nil
	case config.BackendRedis:
		rdb, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(rdb), func() { _ = rdb.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
