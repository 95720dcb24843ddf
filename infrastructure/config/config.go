// Package config loads deployment configuration from the environment.
// Domain tunables live in domain/config; this package covers transport,
// persistence and observability settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Persistence drivers
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
)

// Config is the process configuration
type Config struct {
	Environment string `validate:"required,oneof=development staging production"`
	Port        int    `validate:"required,min=1,max=65535"`
	LogLevel    string `validate:"required,oneof=debug info warn error"`

	AllowedOrigins []string

	JWTSecret   string        `validate:"required,min=16"`
	TokenExpiry time.Duration `validate:"required"`

	PersistenceDriver string `validate:"required,oneof=memory dynamodb"`
	DynamoDBTable     string `validate:"required_if=PersistenceDriver dynamodb"`
	DynamoDBEndpoint  string
	AWSRegion         string

	CatalogFile  string
	OTLPEndpoint string
}

// Load reads configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnvInt("PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:    getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		TokenExpiry:       getEnvDuration("TOKEN_EXPIRY", 24*time.Hour),
		PersistenceDriver: getEnv("PERSISTENCE_DRIVER", DriverMemory),
		DynamoDBTable:     getEnv("DYNAMODB_TABLE", ""),
		DynamoDBEndpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		CatalogFile:       getEnv("CATALOG_FILE", ""),
		OTLPEndpoint:      getEnv("OTLP_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
