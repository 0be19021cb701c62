// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	CredentialSalt string
	Timezone       string
	Location       *time.Location
	KafkaBrokers   []string
	KafkaTopic     string
	LogLevel       slog.Level
}

// ParseFlags reads flags, falling back to environment variables for anything unset
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var brokers, level string

	fs := flag.NewFlagSet("tally", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.CredentialSalt, "credential-salt", "", "Observer password salt (prefer env)")

	fs.StringVar(&cfg.Timezone, "tz", "", "IANA timezone that defines election calendar days")
	fs.StringVar(&brokers, "kafka-brokers", "", "Comma separated Kafka brokers for the audit stream")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for the audit stream")
	fs.StringVar(&level, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}

	// Secrets - MUST be provided
	if cfg.CredentialSalt == "" {
		cfg.CredentialSalt = os.Getenv("CREDENTIAL_SALT")
	}
	if cfg.CredentialSalt == "" {
		return Config{}, errors.New("CREDENTIAL_SALT required")
	}

	if cfg.Timezone == "" {
		cfg.Timezone = os.Getenv("ELECTION_TZ")
		if cfg.Timezone == "" {
			cfg.Timezone = "UTC"
		}
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if brokers == "" {
		brokers = os.Getenv("KAFKA_BROKERS")
	}
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")
		if cfg.KafkaTopic == "" {
			cfg.KafkaTopic = "tally.audit"
		}
	}

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return Config{}, fmt.Errorf("invalid log level %q", level)
		}
	}

	return cfg, nil
}
