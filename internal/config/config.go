package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const envPrefix = "FAMORG_"

// Config holds process configuration loaded from the environment.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	Location  *time.Location

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SecretKey   string
	SessionTTL  time.Duration
	FrontendURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	CalendarTimeout    time.Duration

	OllamaHost    string
	OllamaModel   string
	OllamaTimeout time.Duration

	ScraperURL     string
	ScraperTimeout time.Duration

	ResetInterval          time.Duration
	Go4SchoolsInterval     time.Duration
	Go4SchoolsInitialDelay time.Duration

	StartupAttempts int
	StartupBackoff  time.Duration
}

// Load reads FAMORG_* environment variables, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8090"),
		DBPath:    getEnv("DB_PATH", "famorg.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		SecretKey:   getEnv("SECRET_KEY", ""),
		SessionTTL:  getDuration("SESSION_TTL", 24*time.Hour),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8090/api/auth/callback"),
		CalendarTimeout:    getDuration("CALENDAR_TIMEOUT", 30*time.Second),

		OllamaHost:    strings.TrimRight(getEnv("OLLAMA_HOST", "http://localhost:11434"), "/"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "deepseek-r1:latest"),
		OllamaTimeout: getDuration("OLLAMA_TIMEOUT", 15*time.Second),

		ScraperURL:     strings.TrimRight(getEnv("SCRAPER_URL", ""), "/"),
		ScraperTimeout: getDuration("SCRAPER_TIMEOUT", 60*time.Second),

		ResetInterval:          getDuration("RESET_INTERVAL", time.Hour),
		Go4SchoolsInterval:     getDuration("GO4SCHOOLS_INTERVAL", 24*time.Hour),
		Go4SchoolsInitialDelay: getDuration("GO4SCHOOLS_INITIAL_DELAY", time.Hour),

		StartupAttempts: getInt("STARTUP_ATTEMPTS", 10),
		StartupBackoff:  getDuration("STARTUP_BACKOFF", 5*time.Second),
	}

	tz := getEnv("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	cfg.Location = loc

	if cfg.StartupAttempts < 1 {
		cfg.StartupAttempts = 1
	}

	return cfg, nil
}

// GoogleEnabled reports whether OAuth client credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
