package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// LLM providers understood by llm.NewTextGenerator.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Session backends understood by app.New.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds the configuration for the application.
type Config struct {
	Environment Environment
	Port        string
	CORSOrigins []string

	// LLM Config
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModel    string
	GroqAPIKey     string
	GroqModel      string
	LLMTemperature float32

	// Planning
	GenerationTimeout time.Duration
	DefaultPlanDays   int
	MaxPlanDays       int

	// Sessions
	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration

	DatabasePath string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	// Price worker
	StoreProfilesPath string
	APIBaseURL        string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		Environment:        Development,
		Port:               getEnv("PORT", "8008"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5000,http://127.0.0.1:5000")),
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqModel:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
		RedisURL:           os.Getenv("REDIS_URL"),
		DatabasePath:       getEnv("DATABASE_PATH", "data/meal-shopper.db"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		StoreProfilesPath:  getEnv("STORE_PROFILES_PATH", "stores.yaml"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8008"),
	}

	if os.Getenv("ENVIRONMENT") == string(Production) {
		cfg.Environment = Production
	}

	switch cfg.LLMProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}
	cfg.LLMTemperature = float32(temperature)

	if cfg.GenerationTimeout, err = time.ParseDuration(getEnv("GENERATION_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("invalid GENERATION_TIMEOUT: %w", err)
	}
	if cfg.DefaultPlanDays, err = strconv.Atoi(getEnv("DEFAULT_PLAN_DAYS", "3")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PLAN_DAYS: %w", err)
	}
	if cfg.MaxPlanDays, err = strconv.Atoi(getEnv("MAX_PLAN_DAYS", "14")); err != nil {
		return nil, fmt.Errorf("invalid MAX_PLAN_DAYS: %w", err)
	}

	switch cfg.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported SESSION_BACKEND %q", cfg.SessionBackend)
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if cfg.SessionTTL, err = time.ParseDuration(ttl); err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
	}

	// Telegram Config (optional, the bot is only started when a token is present)
	for _, raw := range splitList(os.Getenv("TELEGRAM_ALLOWED_USER_IDS")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", raw, err)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}
	if adminID := os.Getenv("ADMIN_TELEGRAM_ID"); adminID != "" {
		if cfg.AdminTelegramID, err = strconv.ParseInt(adminID, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
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
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewWorkerFromEnv loads the subset of configuration used by the price worker,
// which talks to the API over HTTP and needs no LLM credentials.
func NewWorkerFromEnv() *Config {
	env := Development
	if os.Getenv("ENVIRONMENT") == string(Production) {
		env = Production
	}
	return &Config{
		Environment:       env,
		StoreProfilesPath: getEnv("STORE_PROFILES_PATH", "stores.yaml"),
		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8008"),
	}
}
