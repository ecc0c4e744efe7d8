package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ClockSystem = "system"
	ClockManual = "manual"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	LogLevel    string

	JWTSecret       string
	JWTAccessExpiry time.Duration

	NATS NATSConfig

	// ProgramID is a base58 program address. When empty, addresses are
	// derived under a namespace hashed from Namespace.
	ProgramID string
	Namespace string

	ClockMode  string
	ClockStart int64
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	accessExpiry, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		JWTSecret:       getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry: accessExpiry,

		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "vesting"),
			Name:          getEnv("NATS_CLIENT_NAME", "vesting-api"),
		},

		ProgramID: getEnv("PROGRAM_ID", ""),
		Namespace: getEnv("PROGRAM_NAMESPACE", "vesting"),

		ClockMode: getEnv("CLOCK_MODE", ClockSystem),
	}

	if v := getEnv("CLOCK_START", ""); v != "" {
		start, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CLOCK_START %q: %w", v, err)
		}
		cfg.ClockStart = start
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.ClockMode {
	case ClockSystem:
	case ClockManual:
		if c.IsProduction() {
			return fmt.Errorf("CLOCK_MODE=manual is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown CLOCK_MODE %q", c.ClockMode)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DevEndpoints reports whether the mint and clock endpoints are exposed.
func (c *Config) DevEndpoints() bool {
	return !c.IsProduction()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
