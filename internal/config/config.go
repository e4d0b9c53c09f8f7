package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"-"`
	JWT      JWTConfig      `yaml:"-"`
	Payment  PaymentConfig  `yaml:"payment"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Sweep    SweepConfig    `yaml:"sweep"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"` // development, staging, production
	LogLevel    string `yaml:"log_level"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds the secret used to validate platform-issued access tokens
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// PaymentConfig holds payment provider configuration.
// SecretKey and WebhookSecret are never read from the YAML overlay.
type PaymentConfig struct {
	BaseURL          string        `yaml:"base_url"`
	SecretKey        string        `yaml:"-"`
	WebhookSecret    string        `yaml:"-"`
	CallbackURL      string        `yaml:"callback_url"`
	DefaultCurrency  string        `yaml:"default_currency"`
	WebhookTolerance time.Duration `yaml:"-"`
	RequestTimeout   time.Duration `yaml:"-"`
}

// RedisConfig holds cache configuration. Empty Addr disables caching.
type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"-"`
	DB            int           `yaml:"db"`
	PriceCacheTTL time.Duration `yaml:"-"`
	LookupTTL     time.Duration `yaml:"-"`
}

// KafkaConfig holds event publishing configuration. No brokers disables publishing.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	BookingTopic  string   `yaml:"booking_topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// SweepConfig controls the pending order sweeper
type SweepConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Schedule  string        `yaml:"schedule"`
	MinAge    time.Duration `yaml:"-"`
	MaxAge    time.Duration `yaml:"-"`
	BatchSize int           `yaml:"batch_size"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// Load loads configuration from environment variables, then applies the
// optional YAML overlay named by CONFIG_FILE.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "smarttransit-auth"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Payment: PaymentConfig{
			BaseURL:          getEnv("PAYMENT_BASE_URL", "https://api.paystack.co"),
			SecretKey:        getEnv("PAYMENT_SECRET_KEY", ""),
			WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
			CallbackURL:      getEnv("PAYMENT_CALLBACK_URL", ""),
			DefaultCurrency:  getEnv("PAYMENT_DEFAULT_CURRENCY", "NGN"),
			WebhookTolerance: time.Duration(getEnvAsInt("WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
			RequestTimeout:   time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			PriceCacheTTL: time.Duration(getEnvAsInt("PRICE_CACHE_TTL_SECONDS", 300)) * time.Second,
			LookupTTL:     time.Duration(getEnvAsInt("BOOKING_LOOKUP_TTL_SECONDS", 600)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvAsSlice("KAFKA_BROKERS", nil),
			BookingTopic:  getEnv("KAFKA_BOOKING_TOPIC", "booking-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "booking-events-logger"),
		},
		Sweep: SweepConfig{
			Enabled:   getEnvAsBool("SWEEP_ENABLED", true),
			Schedule:  getEnv("SWEEP_CRON", "0 */5 * * * *"),
			MinAge:    time.Duration(getEnvAsInt("SWEEP_MIN_AGE_SECONDS", 120)) * time.Second,
			MaxAge:    time.Duration(getEnvAsInt("SWEEP_MAX_AGE_HOURS", 24)) * time.Hour,
			BatchSize: getEnvAsInt("SWEEP_BATCH_SIZE", 50),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Request-ID"}),
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyFile overlays non-secret settings from a YAML file onto cfg.
// Keys absent from the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	// Provider secrets may be absent in development; requests then fail with MISSING_PROVIDER_KEY
	if c.IsProduction() {
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("PAYMENT_SECRET_KEY is required in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("WEBHOOK_SECRET is required in production")
		}
	}

	if c.Sweep.Enabled && c.Sweep.MinAge >= c.Sweep.MaxAge {
		return fmt.Errorf("SWEEP_MIN_AGE_SECONDS must be shorter than SWEEP_MAX_AGE_HOURS")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
