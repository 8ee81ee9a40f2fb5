package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/fund-ledger/internal/config"
	"github.com/hongminglow/fund-ledger/internal/logging"
	"github.com/hongminglow/fund-ledger/internal/server"
	"github.com/hongminglow/fund-ledger/internal/storage/open"
)

func main() {
	envLoaded := godotenv.Load() == nil

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if !envLoaded {
		logger.Info().Msg("no .env file found; relying on existing environment")
	}

	ctx := context.Background()
	store, err := open.Store(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	srv := server.New(cfg, store, logger)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("storage", cfg.StorageDriver).Msg("fund-ledger listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
