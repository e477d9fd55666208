package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	BackendRedis = "redis"
	BackendFile  = "file"
)

type Config struct {
	// Service configuration
	ServiceName string
	UserID      string
	HTTPAddr    string

	// NATS configuration
	NatsEnabled        bool
	NatsURL            string
	NatsRequestSubject string
	NatsTimeout        time.Duration

	// LLM configuration
	LLMProvider     string
	LLMTimeout      time.Duration
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	// Collaborators
	SerpAPIKey      string
	PlacesTimeout   time.Duration
	RecipesDBPath   string
	RecipesSeedPath string

	// Session storage
	SessionBackend     string
	RedisURL           string
	SessionTTL         time.Duration
	SessionDir         string
	SessionIdleTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "foodbuddy-agent"),
		UserID:      getEnv("USER_ID", ""),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),

		// NATS settings
		NatsEnabled:        getBoolEnv("NATS_ENABLED", true),
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsRequestSubject: getEnv("NATS_REQUEST_SUBJECT", "foodbuddy.chat"),
		NatsTimeout:        getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// LLM settings
		LLMProvider:     getEnv("LLM_PROVIDER", ProviderAnthropic),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 30*time.Second),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		// Collaborator settings
		SerpAPIKey:      getEnv("SERPAPI_API_KEY", ""),
		PlacesTimeout:   getDurationEnv("PLACES_TIMEOUT", 10*time.Second),
		RecipesDBPath:   getEnv("RECIPES_DB_PATH", "data/recipes.db"),
		RecipesSeedPath: getEnv("RECIPES_SEED_PATH", ""),

		// Session settings
		SessionBackend:     getEnv("SESSION_BACKEND", BackendRedis),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:         getDurationEnv("SESSION_TTL", 0),
		SessionDir:         getEnv("SESSION_DIR", "data/sessions"),
		SessionIdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the credentials for the selected collaborators are present.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.SerpAPIKey == "" {
		return fmt.Errorf("SERPAPI_API_KEY environment variable is required")
	}

	switch c.SessionBackend {
	case BackendRedis, BackendFile:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
