package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the engine.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Identity    IdentityConfig
	Aggregation AggregationConfig
	Email       EmailConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Channel carries inbound aggregation command batches.
	Channel string
}

type IdentityConfig struct {
	// Backend selects the all-users upstream: "directory" or "bulk".
	Backend      string
	GroupBaseURL string
	UsersBaseURL string
	Token        string
	PageSize     int
	Timeout      time.Duration
	CacheTTL     time.Duration
}

type AggregationConfig struct {
	PageSize  int
	Workers   int
	QueueSize int
}

type EmailConfig struct {
	Sender           string
	RenderURL        string
	DispatchURL      string
	PrimaryTemplate  string
	FallbackTemplate string
	Timeout          time.Duration
}

// LoadConfig loads configuration from environment variables.
// Defaults can be set here if needed.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "courier"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_AGGREGATION_CHANNEL", "aggregation.commands"),
		},
		Identity: IdentityConfig{
			Backend:      getEnv("IDENTITY_BACKEND", "directory"),
			GroupBaseURL: getEnv("GROUP_SERVICE_URL", "http://localhost:8180"),
			UsersBaseURL: getEnv("USER_SERVICE_URL", "http://localhost:8181"),
			Token:        getEnv("IDENTITY_TOKEN", ""),
			PageSize:     getEnvAsInt("IDENTITY_PAGE_SIZE", 1000),
			Timeout:      getEnvAsDuration("IDENTITY_TIMEOUT", 30*time.Second),
			CacheTTL:     getEnvAsDuration("RECIPIENT_CACHE_TTL", 10*time.Minute),
		},
		Aggregation: AggregationConfig{
			PageSize:  getEnvAsInt("AGGREGATION_PAGE_SIZE", 100),
			Workers:   getEnvAsInt("AGGREGATION_WORKERS", 4),
			QueueSize: getEnvAsInt("AGGREGATION_QUEUE_SIZE", 32),
		},
		Email: EmailConfig{
			Sender:           getEnv("EMAIL_SENDER", "no-reply@courier.local"),
			RenderURL:        getEnv("TEMPLATE_SERVICE_URL", "http://localhost:8280"),
			DispatchURL:      getEnv("CONNECTOR_URL", "http://localhost:8281"),
			PrimaryTemplate:  getEnv("DIGEST_TEMPLATE", "daily-digest"),
			FallbackTemplate: getEnv("DIGEST_FALLBACK_TEMPLATE", "daily-digest-plain"),
			Timeout:          getEnvAsDuration("EMAIL_TIMEOUT", 30*time.Second),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
