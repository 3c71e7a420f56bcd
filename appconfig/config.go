// Package appconfig loads the typed Config struct from the process
// environment, with .env support for local development.
package appconfig

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries every knob the two binaries read, one field per
// environment variable.
type Config struct {
	MongoDBURL        string
	MongoDBDatabase   string
	BackendURL        string
	BackendPort       string
	GatewayPort       string
	WhatsAppServerURL string

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyDB       int

	DefaultLLM DefaultLLMConfig

	LogLevel  string
	LogFormat string

	SessionCookieName string
	SessionTTL        time.Duration

	RateLimitPerMinute int
	LockoutThreshold   int
	LockoutWindow      time.Duration
	LockoutDuration    time.Duration

	MaxBodyBytes int64
}

// DefaultLLMConfig seeds the `high`/`low` tiers for newly created bots.
type DefaultLLMConfig struct {
	Provider        string
	ModelHigh       string
	ModelLow        string
	Temperature     float64
	ReasoningEffort string
	APIKeySource    string
}

// Load reads .env (if present) then the process environment into
// Config, with defaults suitable for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("MONGODB_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "chatbot_platform")
	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_PORT", "8000")
	v.SetDefault("GATEWAY_PORT", "8080")
	v.SetDefault("WHATSAPP_SERVER_URL", "http://localhost:3000")

	v.SetDefault("VALKEY_ADDRESS", "localhost:6379")
	v.SetDefault("VALKEY_PASSWORD", "")
	v.SetDefault("VALKEY_DB", 0)

	v.SetDefault("DEFAULT_LLM_PROVIDER", "openai")
	v.SetDefault("DEFAULT_LLM_MODEL_HIGH", "gpt-4.1")
	v.SetDefault("DEFAULT_LLM_MODEL_LOW", "gpt-4.1-mini")
	v.SetDefault("DEFAULT_LLM_TEMPERATURE", 0.3)
	v.SetDefault("DEFAULT_LLM_REASONING_EFFORT", "medium")
	v.SetDefault("DEFAULT_LLM_API_KEY_SOURCE", "environment")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("SESSION_COOKIE_NAME", "session_id")
	v.SetDefault("SESSION_TTL_HOURS", 24)

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("LOCKOUT_THRESHOLD", 10)
	v.SetDefault("LOCKOUT_WINDOW_MINUTES", 10)
	v.SetDefault("LOCKOUT_DURATION_MINUTES", 5)

	v.SetDefault("MAX_BODY_BYTES", 80*1024)

	cfg := &Config{
		MongoDBURL:        v.GetString("MONGODB_URL"),
		MongoDBDatabase:   v.GetString("MONGODB_DATABASE"),
		BackendURL:        v.GetString("BACKEND_URL"),
		BackendPort:       v.GetString("BACKEND_PORT"),
		GatewayPort:       v.GetString("GATEWAY_PORT"),
		WhatsAppServerURL: v.GetString("WHATSAPP_SERVER_URL"),

		ValkeyAddress:  v.GetString("VALKEY_ADDRESS"),
		ValkeyPassword: v.GetString("VALKEY_PASSWORD"),
		ValkeyDB:       v.GetInt("VALKEY_DB"),

		DefaultLLM: DefaultLLMConfig{
			Provider:        v.GetString("DEFAULT_LLM_PROVIDER"),
			ModelHigh:       v.GetString("DEFAULT_LLM_MODEL_HIGH"),
			ModelLow:        v.GetString("DEFAULT_LLM_MODEL_LOW"),
			Temperature:     v.GetFloat64("DEFAULT_LLM_TEMPERATURE"),
			ReasoningEffort: v.GetString("DEFAULT_LLM_REASONING_EFFORT"),
			APIKeySource:    v.GetString("DEFAULT_LLM_API_KEY_SOURCE"),
		},

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		SessionCookieName: v.GetString("SESSION_COOKIE_NAME"),
		SessionTTL:        time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,

		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		LockoutThreshold:   v.GetInt("LOCKOUT_THRESHOLD"),
		LockoutWindow:      time.Duration(v.GetInt("LOCKOUT_WINDOW_MINUTES")) * time.Minute,
		LockoutDuration:    time.Duration(v.GetInt("LOCKOUT_DURATION_MINUTES")) * time.Minute,

		MaxBodyBytes: v.GetInt64("MAX_BODY_BYTES"),
	}

	return cfg, nil
}
