// Package config loads configuration from environment variables and sets
// up process logging.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies which reasoning backend to use.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	Port                 string
	MaxDescriptionLength int

	// Knowledge base
	KBPath              string
	SimilarityThreshold float64

	// Reasoning service
	LLMProvider     Provider
	EmbedProvider   Provider
	LLMModel        string
	EmbedModel      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	BedrockModelID  string

	// Retry policy for reasoning calls
	MaxRetries   int
	RetryDelay   time.Duration
	RetryBackoff float64

	// Checkpoint eviction
	CheckpointTTL time.Duration
	CheckpointMax int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		Port:                 getEnv("TRIAGE_PORT", "8000"),
		MaxDescriptionLength: getEnvInt("TRIAGE_MAX_DESCRIPTION_LENGTH", 5000),

		KBPath:              getEnv("TRIAGE_KB_PATH", ""),
		SimilarityThreshold: getEnvFloat("TRIAGE_SIMILARITY_THRESHOLD", 0.5),

		LLMProvider:     Provider(strings.ToLower(getEnv("TRIAGE_LLM_PROVIDER", "openai"))),
		EmbedProvider:   Provider(strings.ToLower(getEnv("TRIAGE_EMBED_PROVIDER", "openai"))),
		LLMModel:        getEnv("TRIAGE_LLM_MODEL", "gpt-4o-mini"),
		EmbedModel:      getEnv("TRIAGE_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		BedrockModelID:  getEnv("TRIAGE_BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),

		MaxRetries:   getEnvInt("TRIAGE_MAX_RETRIES", 3),
		RetryDelay:   getEnvDuration("TRIAGE_RETRY_DELAY", time.Second),
		RetryBackoff: getEnvFloat("TRIAGE_RETRY_BACKOFF", 2.0),

		CheckpointTTL: getEnvDuration("TRIAGE_CHECKPOINT_TTL", time.Hour),
		CheckpointMax: getEnvInt("TRIAGE_CHECKPOINT_MAX", 1024),

		LogFile:  getEnv("TRIAGE_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("TRIAGE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
