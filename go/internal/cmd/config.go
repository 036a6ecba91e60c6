package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/lucky9/go/internal/game/clock"
	"github.com/mcdev12/lucky9/go/internal/game/round"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Game struct {
		RoundDurationSec int `yaml:"round_duration_sec"`
		MaxPlayers       int `yaml:"max_players"`
		TickIntervalSec  int `yaml:"tick_interval_sec"`
		CooldownSec      int `yaml:"cooldown_sec"`
		IdleTicks        int `yaml:"idle_ticks"`
	} `yaml:"game"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Redis struct {
		Addr        string `yaml:"addr"`
		CacheTTLSec int    `yaml:"cache_ttl_sec"`
	} `yaml:"redis"`
	Auth struct {
		TokenTTLHours int `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment variables win over the file so a deployment can tune the
	// lobby without shipping a new config.
	config.Game.RoundDurationSec = getEnvAsInt("ROUND_DURATION_SEC", config.Game.RoundDurationSec)
	config.Game.MaxPlayers = getEnvAsInt("MAX_PLAYERS", config.Game.MaxPlayers)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Redis.Addr = getEnv("REDIS_ADDR", config.Redis.Addr)

	return &config, nil
}

func (c *Config) RoundConfig() round.Config {
	cfg := round.DefaultConfig()
	if c.Game.RoundDurationSec > 0 {
		cfg.Duration = time.Duration(c.Game.RoundDurationSec) * time.Second
	}
	if c.Game.MaxPlayers > 0 {
		cfg.MaxPlayers = c.Game.MaxPlayers
	}
	return cfg
}

func (c *Config) DriverConfig() clock.Config {
	cfg := clock.DefaultConfig()
	if c.Game.TickIntervalSec > 0 {
		cfg.TickInterval = time.Duration(c.Game.TickIntervalSec) * time.Second
	}
	if c.Game.CooldownSec > 0 {
		cfg.Cooldown = time.Duration(c.Game.CooldownSec) * time.Second
	}
	if c.Game.IdleTicks > 0 {
		cfg.IdleTicks = c.Game.IdleTicks
	}
	return cfg
}

func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLHours > 0 {
		return time.Duration(c.Auth.TokenTTLHours) * time.Hour
	}
	return 24 * time.Hour
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSec > 0 {
		return time.Duration(c.Redis.CacheTTLSec) * time.Second
	}
	return 30 * time.Second
}
