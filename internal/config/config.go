// Package config loads the API server configuration from YAML and the
// environment and keeps the live copy that the blocking simulator reads
// on every request.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CSroseX/blocking-api-server/internal/blocking"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Blocking BlockingConfig `json:"blocking" yaml:"blocking"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// LogString, when set, is logged by every REST handler.
	LogString string `json:"log_string,omitempty" yaml:"log_string"`
}

// BlockingConfig holds the simulator defaults and strategy knobs.
type BlockingConfig struct {
	OperationType    string `json:"operation_type" yaml:"operation_type"`
	MinBlockPeriodMs int    `json:"min_block_period_ms" yaml:"min_block_period_ms"`
	MaxBlockPeriodMs int    `json:"max_block_period_ms" yaml:"max_block_period_ms"`

	ScratchDir         string `json:"scratch_dir" yaml:"scratch_dir"`
	SharedScratchFiles bool   `json:"shared_scratch_files" yaml:"shared_scratch_files"`
	HoldNetworkBudget  bool   `json:"hold_network_budget" yaml:"hold_network_budget"`
}

// RedisConfig enables the Redis-backed operation analytics.
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"-" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// TracingConfig controls the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	// Output is a file path; empty means stdout.
	Output string `json:"output" yaml:"output"`
}

// LogConfig selects the slog level.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Blocking: BlockingConfig{
			OperationType:      blocking.FallbackOperationType,
			MinBlockPeriodMs:   blocking.FallbackMinBlockPeriodMs,
			MaxBlockPeriodMs:   blocking.FallbackMaxBlockPeriodMs,
			ScratchDir:         blocking.DefaultScratchDir,
			SharedScratchFiles: true,
			HoldNetworkBudget:  true,
		},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Tracing: TracingConfig{ServiceName: "blocking-api-server"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnvString("APISERVER_ADDR", cfg.Server.Addr)
	cfg.Server.LogString = getEnvString("BRM_LOG_STRING", cfg.Server.LogString)
	cfg.Blocking.OperationType = getEnvString("BRM_BLOCKING_OPERATION_TYPE", cfg.Blocking.OperationType)
	cfg.Blocking.MinBlockPeriodMs = getEnvInt("BRM_BLOCKING_MIN_BLOCK_PERIOD_MS", cfg.Blocking.MinBlockPeriodMs)
	cfg.Blocking.MaxBlockPeriodMs = getEnvInt("BRM_BLOCKING_MAX_BLOCK_PERIOD_MS", cfg.Blocking.MaxBlockPeriodMs)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Log.Level = getEnvString("LOG_LEVEL", cfg.Log.Level)
}

// Validate rejects values the server cannot run with. An unknown operation
// type is accepted: the simulator degrades it to SLEEP with a warning.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	}
	if c.Blocking.MinBlockPeriodMs < 0 || c.Blocking.MaxBlockPeriodMs < 0 {
		return fmt.Errorf("%w: block periods must be non-negative (min %d, max %d)",
			ErrInvalidConfig, c.Blocking.MinBlockPeriodMs, c.Blocking.MaxBlockPeriodMs)
	}
	if c.Blocking.MinBlockPeriodMs > blocking.MaxBlockPeriodMs || c.Blocking.MaxBlockPeriodMs > blocking.MaxBlockPeriodMs {
		return fmt.Errorf("%w: block periods must not exceed %d ms (min %d, max %d)",
			ErrInvalidConfig, blocking.MaxBlockPeriodMs, c.Blocking.MinBlockPeriodMs, c.Blocking.MaxBlockPeriodMs)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required when redis is enabled", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Defaults returns the blocking defaults snapshot.
func (c Config) Defaults() blocking.Defaults {
	return blocking.Defaults{
		OperationType:    c.Blocking.OperationType,
		MinBlockPeriodMs: c.Blocking.MinBlockPeriodMs,
		MaxBlockPeriodMs: c.Blocking.MaxBlockPeriodMs,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
