// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds everything cmd/server needs to start.
type Config struct {
	Port              string        `validate:"required,numeric"`
	DBPath            string        `validate:"required"`
	Rules             string        `validate:"required"`
	SendBuffer        int           `validate:"min=1,max=4096"`
	ReconcileInterval time.Duration `validate:"min=1000000000"` // at least one second
	WebDir            string
}

// Defaults returns the configuration used when no variables are set.
func Defaults() Config {
	return Config{
		Port:              "8080",
		DBPath:            "battleship.db",
		Rules:             "classic",
		SendBuffer:        64,
		ReconcileInterval: time.Minute,
	}
}

// Load reads PORT, DB_PATH, RULES, SEND_BUFFER, RECONCILE_INTERVAL and
// WEB_DIR on top of Defaults and validates the result.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if v := getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("RULES"); v != "" {
		cfg.Rules = v
	}
	if v := getenv("SEND_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("SEND_BUFFER: %w", err)
		}
		cfg.SendBuffer = n
	}
	if v := getenv("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("RECONCILE_INTERVAL: %w", err)
		}
		cfg.ReconcileInterval = d
	}
	cfg.WebDir = getenv("WEB_DIR")

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}
