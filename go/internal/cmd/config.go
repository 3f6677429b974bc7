package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/mcdev12/nightskip/go/internal/config"
	"github.com/mcdev12/nightskip/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

// Env is the service configuration read from the environment.
type Env struct {
	Port         string `env:"PORT"               envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL"          envDefault:"info"`
	LogJSON      bool   `env:"LOG_JSON"           envDefault:"false"`
	ConfigPath   string `env:"NIGHTSKIP_CONFIG"   envDefault:"config.yml"`
	MessagesPath string `env:"NIGHTSKIP_MESSAGES" envDefault:"messages.yml"`
	StartTime    int64  `env:"WORLD_START_TIME"   envDefault:"0"`

	NATSEnabled bool   `env:"NATS_ENABLED" envDefault:"true"`
	NATSURL     string `env:"NATS_URL"     envDefault:"nats://localhost:4222"`

	HistoryEnabled bool `env:"HISTORY_ENABLED" envDefault:"false"`
	DB             dbconfig.Config
}

func loadEnv() (Env, error) {
	var e Env
	if err := config.ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// loadSnapshot reads the gameplay config, falling back to defaults when the
// file does not exist.
func loadSnapshot(path string) (config.Snapshot, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return config.Default(), nil
	}
	if err != nil {
		return config.Snapshot{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func loadMessages(path string) (config.Messages, error) {
	msgs, err := config.LoadMessages(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("messages file not found, using defaults")
		return config.DefaultMessages(), nil
	}
	if err != nil {
		return config.Messages{}, fmt.Errorf("failed to load messages: %w", err)
	}
	return msgs, nil
}
