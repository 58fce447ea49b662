// Package config loads runtime settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rugscope/market-analyzer/internal/datasource"
)

// Config holds all settings for the server and the CLI.
type Config struct {
	// Server
	Port string

	// Storage
	DatabaseURL   string
	RedisURL      string
	RedisCacheTTL time.Duration
	StoreFile     string

	// Market data API
	APIBase     string
	APITimeout  time.Duration
	RateRPS     float64
	RateBurst   int
	HolderLimit int

	LogLevel slog.Level
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisCacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", 30*time.Second),
		StoreFile:     getEnv("RUGSCOPE_STORE_FILE", ""),

		APIBase:     strings.TrimRight(getEnv("RUGSCOPE_API_BASE", datasource.DefaultBaseURL), "/"),
		APITimeout:  getEnvAsDuration("RUGSCOPE_API_TIMEOUT", datasource.DefaultTimeout),
		RateRPS:     getEnvAsFloat("RUGSCOPE_RATE_RPS", 2),
		RateBurst:   getEnvAsInt("RUGSCOPE_RATE_BURST", 4),
		HolderLimit: getEnvAsInt("RUGSCOPE_HOLDER_LIMIT", datasource.DefaultHolderLimit),

		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
	if cfg.HolderLimit <= 0 {
		return Config{}, fmt.Errorf("RUGSCOPE_HOLDER_LIMIT must be positive, got %d", cfg.HolderLimit)
	}
	return cfg, nil
}

// DataSourceOptions maps the API settings onto datasource.Options.
func (c Config) DataSourceOptions() datasource.Options {
	return datasource.Options{
		BaseURL:       c.APIBase,
		Timeout:       c.APITimeout,
		RatePerSecond: c.RateRPS,
		Burst:         c.RateBurst,
		HolderLimit:   c.HolderLimit,
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	s := getEnv(key, "")
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func getEnvAsLevel(key string, defaultVal slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(getEnv(key, ""))); err == nil {
		return lvl
	}
	return defaultVal
}
