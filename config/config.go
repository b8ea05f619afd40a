package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Render   RenderConfig
	Auth     AuthConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig selects the project store backend and the artifact root.
type StorageConfig struct {
	// Backend is one of "postgres", "redis", "memory".
	Backend     string
	ArtifactDir string
}

type RenderConfig struct {
	// Launcher is prepended to the executable path when spawning,
	// e.g. "java -jar" for jar artifacts. Empty means exec directly.
	Launcher     string
	Timeout      time.Duration
	MaxDimension int
	TempDir      string
	// RatePerSec bounds how many renders per second the server accepts.
	RatePerSec float64
	RateBurst  int
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
	TokenTTL  time.Duration
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "genart"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORE_BACKEND", "postgres"),
			ArtifactDir: getEnv("ARTIFACT_DIR", "data"),
		},
		Render: RenderConfig{
			Launcher:     getEnv("RENDER_LAUNCHER", "java -jar"),
			Timeout:      getEnvAsDuration("RENDER_TIMEOUT", 30*time.Second),
			MaxDimension: getEnvAsInt("RENDER_MAX_DIMENSION", 4096),
			TempDir:      getEnv("RENDER_TEMP_DIR", os.TempDir()),
			RatePerSec:   getEnvAsFloat("RENDER_RATE_PER_SEC", 2),
			RateBurst:    getEnvAsInt("RENDER_RATE_BURST", 4),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "genart-backend"),
			Audience:  getEnv("JWT_AUDIENCE", "genart-users"),
			TokenTTL:  getEnvAsDuration("JWT_TOKEN_TTL", 500*time.Second),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Storage.Backend {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres, redis or memory, got %q", c.Storage.Backend)
	}

	if c.Storage.Backend == "postgres" && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Render.Timeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT must be positive")
	}

	if c.Render.MaxDimension <= 0 {
		return fmt.Errorf("RENDER_MAX_DIMENSION must be positive")
	}

	return nil
}

// LauncherArgs splits the launcher string into argv parts.
func (r *RenderConfig) LauncherArgs() []string {
	return strings.Fields(r.Launcher)
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
