package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/TPP-insulA/insula-bot/internal/logger"
)

type Config struct {
	TelegramToken   string
	GeminiAPIKey    string
	GeminiModel     string
	DisplayTimezone string
	API             APIConfig
	DB              DBConfig
	Redis           RedisConfig
	StateBackend    string
	Logger          LoggerConfig
}

// APIConfig describes the insulA backend the bot talks to
type APIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host string
	Port string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// Load reads the configuration from the environment. Call Validate before
// using it to start the bot.
func Load() (*Config, error) {
	timeout, err := getDurationOrDefault("API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	retryCount, err := getIntOrDefault("API_RETRY_COUNT", 0)
	if err != nil {
		return nil, err
	}
	retryWait, err := getDurationOrDefault("API_RETRY_WAIT", time.Second)
	if err != nil {
		return nil, err
	}
	retryMaxWait, err := getDurationOrDefault("API_RETRY_MAX_WAIT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		DisplayTimezone: getEnvOrDefault("DISPLAY_TIMEZONE", "America/Argentina/Buenos_Aires"),
		API: APIConfig{
			BaseURL:      strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
			Timeout:      timeout,
			RetryCount:   retryCount,
			RetryWait:    retryWait,
			RetryMaxWait: retryMaxWait,
		},
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "insula_bot"),
		},
		Redis: RedisConfig{
			Host: getEnvOrDefault("REDIS_HOST", "localhost"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		StateBackend: strings.ToLower(getEnvOrDefault("STATE_BACKEND", StateBackendMemory)),
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "logs/app.log"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}, nil
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var problems []string
	if c.TelegramToken == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.API.BaseURL == "" {
		problems = append(problems, "API_BASE_URL is required")
	}
	if c.API.RetryCount < 0 {
		problems = append(problems, "API_RETRY_COUNT must not be negative")
	}
	if c.StateBackend != StateBackendMemory && c.StateBackend != StateBackendRedis {
		problems = append(problems, fmt.Sprintf("STATE_BACKEND must be %q or %q", StateBackendMemory, StateBackendRedis))
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		problems = append(problems, fmt.Sprintf("DISPLAY_TIMEZONE: %v", err))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
