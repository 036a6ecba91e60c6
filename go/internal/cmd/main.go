package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/lucky9/go/internal/dbconfig"
	"github.com/mcdev12/lucky9/go/internal/game/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	// Database configuration
	dbCfg := dbconfig.NewConfigFromEnv()

	// Connect to database
	db, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupPgxPool(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pgx pool")
	}
	defer pool.Close()

	// Connect to Redis
	rdb := setupRedis(cfg.Redis.Addr)
	defer rdb.Close()

	// Connect to NATS
	nc, err := notify.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", cfg.NATS.URL).
		Str("redis_addr", cfg.Redis.Addr).
		Msg("starting lucky9 lobby service")

	services, err := setupServices(cfg, db, pool, rdb, nc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}

	// Start the round driver. It suspends itself when the lobby goes idle
	// and is resumed by status requests and socket connects.
	services.Driver.Start(ctx)

	// Bridge NATS game events to connected websocket clients
	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway event consumer failed")
		}
	}()

	server := setupServer(cfg, services)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	services.Driver.Stop()
	cancel()

	log.Info().Msg("lobby service shutdown complete")
}
