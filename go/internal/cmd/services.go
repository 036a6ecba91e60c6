package main

import (
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/mcdev12/lucky9/go/internal/game/clock"
	"github.com/mcdev12/lucky9/go/internal/game/gateway"
	"github.com/mcdev12/lucky9/go/internal/game/notify"
	"github.com/mcdev12/lucky9/go/internal/game/round"
	"github.com/mcdev12/lucky9/go/internal/leaderboard"
	"github.com/mcdev12/lucky9/go/internal/users"
)

type Services struct {
	Users       *users.Service
	Game        *round.Service
	Leaderboard *leaderboard.Service
	Gateway     *gateway.Service
	Driver      *clock.Driver
}

func setupServices(cfg *Config, db *sql.DB, pool *pgxpool.Pool, rdb *redis.Client, nc *nats.Conn) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	// Users
	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	tokens, err := users.NewTokenManager(jwtSecret, cfg.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	userRepo := users.NewRepository(db)
	userApp := users.NewApp(userRepo, tokens)
	userService := users.NewService(userApp, tokens)

	// Game round
	roundRepo := round.NewRepository(db)
	manager := round.NewManager(roundRepo, cfg.RoundConfig())
	notifier := notify.NewNATSNotifier(nc)
	driver := clock.NewDriver(manager, notifier, cfg.DriverConfig())
	gameService := round.NewService(manager, userService, driver)

	// WebSocket gateway
	gatewayService := gateway.NewService(gateway.DefaultConnectionConfig(), nc, manager, driver, tokens)

	// Leaderboard
	lbRepo := leaderboard.NewRepository(pool)
	lbCache := leaderboard.NewCache(rdb, cfg.CacheTTL())
	lbApp := leaderboard.NewApp(lbRepo, lbCache)
	lbService := leaderboard.NewService(lbApp, userService)

	return &Services{
		Users:       userService,
		Game:        gameService,
		Leaderboard: lbService,
		Gateway:     gatewayService,
		Driver:      driver,
	}, nil
}
