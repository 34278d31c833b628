// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds every setting the binaries read from the environment.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`

	StoreDriver   string `env:"STORE_DRIVER,default=memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE,default=banking"`

	// KafkaBrokers is semicolon separated. Empty disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC,default=transaction_settled"`

	SettlementWorkers int `env:"SETTLEMENT_WORKERS,default=4"`

	PipelineSchedule string        `env:"PIPELINE_SCHEDULE"`
	PipelineLevel    int           `env:"PIPELINE_LEVEL,default=3"`
	PipelineTimeout  time.Duration `env:"PIPELINE_TIMEOUT,default=30s"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load reads envFile when it exists, then decodes the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env (%s): %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the app cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.SettlementWorkers < 1 {
		return fmt.Errorf("SETTLEMENT_WORKERS must be at least 1, got %d", c.SettlementWorkers)
	}
	if c.PipelineLevel < 1 {
		return fmt.Errorf("PIPELINE_LEVEL must be at least 1, got %d", c.PipelineLevel)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must be positive, got %s", c.PipelineTimeout)
	}
	if c.PipelineSchedule != "" {
		if _, err := cron.ParseStandard(c.PipelineSchedule); err != nil {
			return fmt.Errorf("invalid PIPELINE_SCHEDULE: %w", err)
		}
	}
	return nil
}
