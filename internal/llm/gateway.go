// Package llm provides the reasoning gateway: LLM generation and embeddings
// via langchaingo, wrapped with bounded retry and deterministic fallbacks.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/Rohitw3code/ticket-triage-agent/internal/config"
	"github.com/Rohitw3code/ticket-triage-agent/internal/metrics"
)

// RetryPolicy bounds the retry loop around external reasoning calls.
// Delay before retry i is Delay * Backoff^(i-1).
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Backoff    float64
}

// Gateway wraps the external reasoning service. Transient failures are
// retried with exponential backoff; callers only ever see a final result,
// a deterministic fallback, or a permanent error.
type Gateway struct {
	model     llms.Model
	embedder  embeddings.Embedder
	policy    RetryPolicy
	threshold float64
	logger    *slog.Logger
	collector *metrics.Collector
	modelName string
}

// NewGateway creates a gateway from configuration. The generation model and
// the embedding model are configured independently.
func NewGateway(ctx context.Context, cfg config.Config, logger *slog.Logger, collector *metrics.Collector) (*Gateway, error) {
	model, modelName, err := newModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		model:     model,
		embedder:  embedder,
		policy:    RetryPolicy{MaxRetries: cfg.MaxRetries, Delay: cfg.RetryDelay, Backoff: cfg.RetryBackoff},
		threshold: cfg.SimilarityThreshold,
		logger:    logger,
		collector: collector,
		modelName: modelName,
	}, nil
}

// NewGatewayFromParts builds a gateway around existing langchaingo
// components (for testing).
func NewGatewayFromParts(model llms.Model, embedder embeddings.Embedder, policy RetryPolicy, threshold float64, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		model:     model,
		embedder:  embedder,
		policy:    policy,
		threshold: threshold,
		logger:    logger,
	}
}

func newModel(ctx context.Context, cfg config.Config) (llms.Model, string, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err := ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, "", fmt.Errorf("create ollama model: %w", err)
		}
		return model, cfg.LLMModel, nil

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, "", fmt.Errorf("OpenAI API key required")
		}
		model, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, "", fmt.Errorf("create openai model: %w", err)
		}
		return model, cfg.LLMModel, nil

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, "", fmt.Errorf("Anthropic API key required")
		}
		model, err := anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, "", fmt.Errorf("create anthropic model: %w", err)
		}
		return model, cfg.LLMModel, nil

	case config.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load AWS config: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err := bedrock.New(
			bedrock.WithModel(cfg.BedrockModelID),
			bedrock.WithClient(client),
		)
		if err != nil {
			return nil, "", fmt.Errorf("create bedrock model: %w", err)
		}
		return model, cfg.BedrockModelID, nil

	default:
		return nil, "", fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

func newEmbedder(cfg config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderOllama:
		client, err := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		embedder, err := embeddings.NewEmbedder(client)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}
		return embedder, nil

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		client, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		embedder, err := embeddings.NewEmbedder(client)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}
		return embedder, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}
}

// Model returns the generation model name.
func (g *Gateway) Model() string {
	return g.modelName
}

// Embed generates an embedding vector for the query text. If every retry is
// exhausted on transient failures it returns an empty vector, the "no match
// possible" fallback, so knowledge-base search degrades instead of aborting.
// Permanent failures are returned as errors.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32

	err := g.withRetry(ctx, "embed", func() error {
		start := time.Now()
		vectors, err := g.embedder.EmbedDocuments(ctx, []string{text})
		if err != nil {
			if g.collector != nil {
				g.collector.RecordFailure(metrics.OpEmbedding)
			}
			return fmt.Errorf("embed: %w", err)
		}
		if len(vectors) == 0 {
			return fmt.Errorf("embed: no embedding returned")
		}
		if g.collector != nil {
			g.collector.RecordTiming(metrics.OpEmbedding, time.Since(start))
		}
		vec = vectors[0]
		return nil
	})

	if err != nil {
		if isTransient(err) {
			g.logger.Warn("embedding retries exhausted, returning empty vector", "error", err)
			return []float32{}, nil
		}
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts, retried as one unit.
// Used at index load; failure here is surfaced so startup can fail fast.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vecs [][]float32
	err := g.withRetry(ctx, "embed_batch", func() error {
		start := time.Now()
		vectors, err := g.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			if g.collector != nil {
				g.collector.RecordFailure(metrics.OpEmbedding)
			}
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embed batch: count mismatch: got %d, want %d", len(vectors), len(texts))
		}
		if g.collector != nil {
			g.collector.RecordTiming(metrics.OpEmbedding, time.Since(start))
		}
		vecs = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// generate runs one retried GenerateContent call and returns the first choice.
func (g *Gateway) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	var choice *llms.ContentChoice

	err := g.withRetry(ctx, "generate", func() error {
		start := time.Now()
		resp, err := g.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			if g.collector != nil {
				g.collector.RecordFailure(metrics.OpLLMGenerate)
			}
			return fmt.Errorf("generate: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("generate: no response choices")
		}
		if g.collector != nil {
			g.collector.RecordTiming(metrics.OpLLMGenerate, time.Since(start))
		}
		choice = resp.Choices[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return choice, nil
}
