package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Timezone    string
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Validation  ValidationConfig
	Anomaly     AnomalyConfig
	Assistant   AssistantConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and routing settings. An empty
// URL disables event publishing.
type RabbitMQConfig struct {
	URL               string
	EventsExchange    string
	ReadingRoutingKey string
	AnomalyRoutingKey string
}

// ValidationConfig holds validation settings
type ValidationConfig struct {
	FutureToleranceMinutes int
}

// AnomalyConfig holds anomaly detection settings
type AnomalyConfig struct {
	SpikeThreshold  float64
	MinDaysForSpike int
}

// AssistantConfig holds AI assistant provider settings. An empty APIKey
// disables the assistant endpoint.
type AssistantConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "prepaid-meter-service"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8080),
		Timezone:    getEnv("TIMEZONE", "Local"),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			EventsExchange:    getEnv("RABBITMQ_EVENTS_EXCHANGE", "prepaid-meter.events.exchange"),
			ReadingRoutingKey: getEnv("RABBITMQ_READING_ROUTING_KEY", "meter.reading.accepted"),
			AnomalyRoutingKey: getEnv("RABBITMQ_ANOMALY_ROUTING_KEY", "meter.usage.anomaly"),
		},
		Validation: ValidationConfig{
			FutureToleranceMinutes: getEnvAsInt("VALIDATION_FUTURE_TOLERANCE_MINUTES", 15),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:  getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
			MinDaysForSpike: getEnvAsInt("ANOMALY_MIN_DAYS", 3),
		},
		Assistant: AssistantConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE %q is not a valid IANA timezone: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
