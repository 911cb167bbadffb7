package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

const defaultLimiters = "default:sliding_window:100:60"

// Config holds application configuration sourced from environment variables.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Store    StoreConfig
	Log      LogConfig
	Limiters []LimiterConfig
	Events   EventsConfig
	Guard    GuardConfig
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// ServerConfig contains HTTP and gRPC server settings
type ServerConfig struct {
	Host         string
	Port         int
	GRPCPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	ClusterNodes []string
}

// StoreConfig selects the counter store backend
type StoreConfig struct {
	Backend string // redis, memory
}

// LimiterConfig describes one named limiter: namespace:strategy:threshold:interval
type LimiterConfig struct {
	Namespace string
	Strategy  string
	Threshold float64
	Interval  float64 // seconds
}

// EventsConfig controls publication of rejection events
type EventsConfig struct {
	Enabled bool
	Topic   string
}

// GuardConfig names the limiter that throttles the HTTP API itself. Empty disables it.
type GuardConfig struct {
	Namespace string
	FailOpen  bool
}

// Load reads environment variables into Config. It expects godotenv to have been
// executed by the caller when needed (e.g. in development).
func Load() (Config, error) {
	server := ServerConfig{
		Host:         getEnv("APP_HOST", "0.0.0.0"),
		Port:         getEnvAsInt("APP_PORT", 3000),
		GRPCPort:     getEnvAsInt("GRPC_PORT", 50051),
		ReadTimeout:  getEnvAsDuration("APP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvAsDuration("APP_WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  getEnvAsDuration("APP_IDLE_TIMEOUT", 10*time.Second),
	}

	redis := RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvAsInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvAsInt("REDIS_DB", 0),
		PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		ClusterNodes: getEnvAsList("REDIS_CLUSTER_NODES"),
	}

	logCfg := LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "console"),
	}

	limiters, err := ParseLimiters(getEnv("LIMITERS", defaultLimiters))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server:   server,
		Redis:    redis,
		Store:    StoreConfig{Backend: getEnv("STORE_BACKEND", StoreBackendRedis)},
		Log:      logCfg,
		Limiters: limiters,
		Events: EventsConfig{
			Enabled: getEnvAsBool("EVENTS_ENABLED", false),
			Topic:   getEnv("EVENTS_TOPIC", "ratelimit.exceeded"),
		},
		Guard: GuardConfig{
			Namespace: getEnv("HTTP_GUARD_NAMESPACE", ""),
			FailOpen:  getEnvAsBool("HTTP_GUARD_FAIL_OPEN", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field consistency
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendRedis, StoreBackendMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.Store.Backend)
	}

	if len(c.Limiters) == 0 {
		return errors.New("at least one limiter must be configured")
	}

	seen := make(map[string]bool, len(c.Limiters))
	for _, l := range c.Limiters {
		if seen[l.Namespace] {
			return fmt.Errorf("duplicate limiter namespace %q", l.Namespace)
		}
		seen[l.Namespace] = true
	}

	if c.Guard.Namespace != "" && !seen[c.Guard.Namespace] {
		return fmt.Errorf("HTTP_GUARD_NAMESPACE %q is not a configured limiter", c.Guard.Namespace)
	}

	return nil
}

// ParseLimiters parses a comma-separated list of namespace:strategy:threshold:interval entries.
func ParseLimiters(raw string) ([]LimiterConfig, error) {
	var limiters []LimiterConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid limiter entry %q: want namespace:strategy:threshold:interval", entry)
		}

		threshold, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold in limiter entry %q: %w", entry, err)
		}
		interval, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid interval in limiter entry %q: %w", entry, err)
		}
		if parts[0] == "" {
			return nil, fmt.Errorf("invalid limiter entry %q: namespace is empty", entry)
		}

		limiters = append(limiters, LimiterConfig{
			Namespace: parts[0],
			Strategy:  parts[1],
			Threshold: threshold,
			Interval:  interval,
		})
	}

	return limiters, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}

	dur, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return dur
}

func getEnvAsList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// LoadDotEnv loads .env from the working directory when present.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: could not load .env: %v", err)
		}
	}
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ServerAddr returns the HTTP server address in host:port format
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns the gRPC server address in host:port format
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
