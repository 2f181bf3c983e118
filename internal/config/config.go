// Package config loads the TAIGA server configuration from the
// environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Engine struct {
		// PopulationSize is the per-task population size for runs that
		// do not specify one.
		PopulationSize int `env:"ENGINE_POP_SIZE" envDefault:"50"`
		// MaxGenerations is the default per-task generation budget.
		MaxGenerations int `env:"ENGINE_MAX_GEN" envDefault:"200"`
		// LogInterval is the default log cadence in generations;
		// 0 disables per-task logging.
		LogInterval int `env:"ENGINE_LOG_INTERVAL" envDefault:"1"`
		// MaxStagnation is the default stagnation budget.
		MaxStagnation int `env:"ENGINE_MAX_STAGNATION" envDefault:"1000"`
		// Seed seeds the GA's random source; 0 derives one from the
		// clock per run.
		Seed int64 `env:"ENGINE_SEED" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Development runs default to readable debug output unless the
	// environment says otherwise.
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
