package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the simulator CLI.
type Config struct {
	// Partitioning
	Workers int

	// Pacing
	TickInterval time.Duration

	// HTTP surface; empty disables it.
	MetricsAddr string

	// Congestion rules
	DwellPadding int
	LinkCooldown int
}

// Load reads configuration from environment variables with sensible
// defaults. Values from a .env file in the working directory are applied
// first without overriding variables already set.
func Load() *Config {
	_ = godotenv.Load(".env")
	return fromEnv()
}

// LoadFile is Load with an explicit env file, e.g. for per-scenario
// overrides. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Workers:      getEnvInt("TROONS_WORKERS", 1),
		TickInterval: getEnvDuration("TROONS_TICK_INTERVAL", 0),
		MetricsAddr:  getEnv("TROONS_METRICS_ADDR", ""),
		DwellPadding: getEnvInt("TROONS_DWELL_PADDING", 2),
		LinkCooldown: getEnvInt("TROONS_LINK_COOLDOWN", 1),
	}
}

// ResolveWorkers maps a non-positive worker count to one worker per CPU.
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
