package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pior/beanstalk"
)

// cliConfig is the optional TOML configuration file.
//
//	addr = "localhost:11300"
//	connect_timeout = "50ms"
//	reconnect_strategy = "exp_backoff"
//	upper_backoff_bound = "30s"
//	max_attempts = 3
//	log_level = "warn"
type cliConfig struct {
	Addr              string `toml:"addr"`
	ConnectTimeout    string `toml:"connect_timeout"`
	ReconnectStrategy string `toml:"reconnect_strategy"`
	UpperBackoffBound string `toml:"upper_backoff_bound"`
	MaxAttempts       int    `toml:"max_attempts"`
	LogLevel          string `toml:"log_level"`
}

func defaultConfig() cliConfig {
	return cliConfig{
		Addr:              beanstalk.DefaultAddr,
		ReconnectStrategy: "none",
		MaxAttempts:       3,
		LogLevel:          "warn",
	}
}

// loadConfig reads path over the defaults. A missing file is not an error
// unless required is set.
func loadConfig(path string, required bool) (cliConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// beanstalkConfig converts the file settings into a connection config.
func (c cliConfig) beanstalkConfig() (beanstalk.Config, error) {
	strategy, err := beanstalk.ParseReconnectStrategy(c.ReconnectStrategy)
	if err != nil {
		return beanstalk.Config{}, err
	}

	connectTimeout, err := parseDuration("connect_timeout", c.ConnectTimeout)
	if err != nil {
		return beanstalk.Config{}, err
	}

	upperBound, err := parseDuration("upper_backoff_bound", c.UpperBackoffBound)
	if err != nil {
		return beanstalk.Config{}, err
	}

	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return beanstalk.Config{}, err
	}

	return beanstalk.Config{
		ConnectTimeout:    connectTimeout,
		ReconnectStrategy: strategy,
		UpperBackoffBound: upperBound,
		MaxAttempts:       c.MaxAttempts,
		Logger:            slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", beanstalk.ErrInvalidConfig, field, err)
	}
	return d, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(value) == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return level, fmt.Errorf("%w: log_level: %w", beanstalk.ErrInvalidConfig, err)
	}
	return level, nil
}
