package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSuggestionDebounce = 300 * time.Millisecond
	defaultSuggestionMax      = 50
	defaultRateLimitRPS       = 10
	defaultRateLimitBurst     = 20
)

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	DatabaseURL        string
	Env                string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	// SuggestionRulesFile replaces the built-in rule table when set.
	SuggestionRulesFile string
	SuggestionDebounce  time.Duration
	SuggestionMax       int

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:         dbURL,
		Env:                 env,
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:   getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:       getEnv("UI_REDIRECT_URL", ""),
		SuggestionRulesFile: getEnv("SUGGESTION_RULES_FILE", ""),
		SuggestionDebounce:  getDuration("SUGGESTION_DEBOUNCE", defaultSuggestionDebounce),
		SuggestionMax:       getInt("SUGGESTION_MAX", defaultSuggestionMax),
		RateLimitRPS:        getFloat("RATE_LIMIT_RPS", defaultRateLimitRPS),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", defaultRateLimitBurst),
	}
}

// UsesMemoryStore reports whether in-memory repositories back this configuration.
func (c Config) UsesMemoryStore() bool {
	return strings.TrimSpace(c.DatabaseURL) == "" && (c.Env == "dev" || c.Env == "local")
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return f
}

// getDuration accepts Go durations ("250ms") or a bare integer of milliseconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
