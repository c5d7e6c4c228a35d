package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Provider APIs
	ONS  ONSConfig
	OECD OECDConfig

	// Data pack defaults
	Pack PackConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ONSConfig holds ONS (UK Office for National Statistics) API configuration.
type ONSConfig struct {
	BaseURL        string
	RequestsPerMin int
}

// OECDConfig holds OECD SDMX-JSON API configuration.
type OECDConfig struct {
	BaseURL         string
	DefaultLocation string
	RequestsPerMin  int
}

// PackConfig holds data pack builder defaults.
type PackConfig struct {
	LookbackPeriods int
	Workers         int
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "econdata"),
			User:            getEnv("DB_USER", "econdata"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		ONS: ONSConfig{
			BaseURL:        getEnv("ONS_BASE_URL", "https://api.ons.gov.uk"),
			RequestsPerMin: getEnvAsInt("ONS_REQUESTS_PER_MIN", 60),
		},

		OECD: OECDConfig{
			BaseURL:         getEnv("OECD_BASE_URL", "https://stats.oecd.org/SDMX-JSON/data"),
			DefaultLocation: getEnv("OECD_DEFAULT_LOCATION", "GBR"),
			RequestsPerMin:  getEnvAsInt("OECD_REQUESTS_PER_MIN", 30),
		},

		Pack: PackConfig{
			LookbackPeriods: getEnvAsInt("PACK_LOOKBACK_PERIODS", 24),
			Workers:         getEnvAsInt("PACK_WORKERS", 4),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pack.LookbackPeriods < 1 {
		return fmt.Errorf("PACK_LOOKBACK_PERIODS must be at least 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
