package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 5000, cfg.MaxDescriptionLength)
	assert.Equal(t, 0.5, cfg.SimilarityThreshold)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 2.0, cfg.RetryBackoff)
	assert.Equal(t, time.Hour, cfg.CheckpointTTL)
	assert.Equal(t, 1024, cfg.CheckpointMax)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRIAGE_PORT", "9999")
	t.Setenv("TRIAGE_MAX_RETRIES", "5")
	t.Setenv("TRIAGE_RETRY_DELAY", "250ms")
	t.Setenv("TRIAGE_RETRY_BACKOFF", "1.5")
	t.Setenv("TRIAGE_SIMILARITY_THRESHOLD", "0.7")
	t.Setenv("TRIAGE_LLM_PROVIDER", "Ollama")
	t.Setenv("TRIAGE_CHECKPOINT_TTL", "30m")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 1.5, cfg.RetryBackoff)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, 30*time.Minute, cfg.CheckpointTTL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TRIAGE_MAX_RETRIES", "not-a-number")
	t.Setenv("TRIAGE_RETRY_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), "level %q", tt.in)
	}
}
