package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Calendar    CalendarConfig
	Tracing     TracingConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	// URL is optional; without it the directory runs on the in-memory store.
	URL            string
	MaxConnections int
}

type StorageConfig struct {
	SnapshotPath string
	SeedFile     string
	SeedOnEmpty  bool
}

type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
	// SecretGenerated is set when JWTSecret was minted for this process only.
	SecretGenerated bool
	DemoAdmin       CredentialConfig
	BootstrapAdmin  BootstrapAdminConfig
}

type CredentialConfig struct {
	Email    string
	Password string
}

type BootstrapAdminConfig struct {
	Name     string
	Email    string
	Password string
}

type RateLimitConfig struct {
	PublicPerMinute int
	AdminPerMinute  int
	// LoginPer15Minutes bounds admin login attempts per client.
	LoginPer15Minutes int
	// TrustedProxyCIDRs lists proxies whose X-Forwarded-For header is believed.
	TrustedProxyCIDRs []string
}

type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

type CalendarConfig struct {
	TimeZone string
	Location *time.Location
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	// OTLPInsecure disables TLS towards the collector, for a local sidecar.
	OTLPInsecure bool
	SampleRate   float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first without overriding variables already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
		},
		Storage: StorageConfig{
			SnapshotPath: getEnv("LOCAL_STORE_PATH", ""),
			SeedFile:     getEnv("SEED_FILE", ""),
			SeedOnEmpty:  getEnvBool("SEED_ON_EMPTY", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
			DemoAdmin: CredentialConfig{
				Email:    getEnv("DEMO_ADMIN_EMAIL", ""),
				Password: getEnv("DEMO_ADMIN_PASSWORD", ""),
			},
			BootstrapAdmin: BootstrapAdminConfig{
				Name:     getEnv("ADMIN_NAME", ""),
				Email:    getEnv("ADMIN_EMAIL", ""),
				Password: getEnv("ADMIN_PASSWORD", ""),
			},
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   getEnvInt("RATE_LIMIT_PUBLIC", 120),
			AdminPerMinute:    getEnvInt("RATE_LIMIT_ADMIN", 0),
			LoginPer15Minutes: getEnvInt("RATE_LIMIT_LOGIN", 5),
			TrustedProxyCIDRs: splitList(getEnv("TRUSTED_PROXY_CIDRS", "")),
		},
		Calendar: CalendarConfig{
			TimeZone: getEnv("CALENDAR_TIMEZONE", "Local"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "confdir"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
			OTLPInsecure: getEnvBool("OTLP_INSECURE", true),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	loc, err := time.LoadLocation(cfg.Calendar.TimeZone)
	if err != nil {
		return Config{}, fmt.Errorf("CALENDAR_TIMEZONE: %w", err)
	}
	cfg.Calendar.Location = loc

	production := cfg.IsProduction()
	if cfg.Auth.JWTSecret == "" {
		if production {
			return Config{}, fmt.Errorf("JWT_SECRET is required in production")
		}
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.Auth.JWTSecret = secret
		cfg.Auth.SecretGenerated = true
	} else if production && len(cfg.Auth.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	if production && cfg.Auth.DemoAdmin.Email != "" {
		return Config{}, fmt.Errorf("DEMO_ADMIN_EMAIL must not be set in production")
	}

	origins := splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))
	cfg.CORS = CORSConfig{AllowedOrigins: origins, AllowAllOrigins: !production}
	if production && len(origins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
