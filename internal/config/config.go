package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server and the mail worker
type Config struct {
	// HTTP API Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration (mail queue)
	Redis RedisConfig

	// Authentication Configuration
	Auth AuthConfig

	// Outbound mail Configuration
	SMTP SMTPConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins []string // Browser client origins accepted by CORS
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// AuthConfig holds token signing configuration.
// JWTSecret has no default: the server refuses to start without it.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// SMTPConfig holds the notification dispatcher transport settings.
// Every field comes from the environment; there are no fallback credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	port := getEnv("PORT", "8080")

	origins := splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	dbURL := getEnv("DATABASE_URL", "unigest.sqlite")

	redisAddr := getEnv("REDIS_ADDRESS", "localhost:6379")

	tokenTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	smtpPort := 0
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		smtpPort, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", raw, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:           port,
			AllowedOrigins: origins,
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Redis: RedisConfig{
			Address: redisAddr,
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  tokenTTL,
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

// Configured reports whether enough SMTP settings are present to dial a server
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.From != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
