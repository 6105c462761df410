// Package kb implements the knowledge-base similarity index: entries with
// precomputed embedding vectors, queried by cosine similarity.
package kb

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Rohitw3code/ticket-triage-agent/internal/metrics"
	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

//go:embed knowledge_base.json
var seedCorpus []byte

// TopK is the number of matches a search returns.
const TopK = 3

// Embedder is the slice of the reasoning gateway the index needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index holds knowledge-base entries with precomputed embeddings. Entries
// are immutable after Load and safely shared across concurrent searches.
type Index struct {
	entries   []models.KBEntry
	embedder  Embedder
	threshold float64
	logger    *slog.Logger
	collector *metrics.Collector
}

// Load reads knowledge-base entries from path (JSON or YAML by extension),
// or from the embedded seed corpus when path is empty, and precomputes an
// embedding for every entry.
func Load(ctx context.Context, path string, embedder Embedder, threshold float64, logger *slog.Logger, collector *metrics.Collector) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := readEntries(path)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.SearchText()
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed knowledge base: %w", err)
	}
	for i := range entries {
		entries[i].Embedding = vectors[i]
	}

	logger.Info("knowledge base loaded", "entries", len(entries), "path", pathLabel(path))

	return &Index{
		entries:   entries,
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
		collector: collector,
	}, nil
}

func readEntries(path string) ([]models.KBEntry, error) {
	data := seedCorpus
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge base: %w", err)
		}
	}

	var entries []models.KBEntry
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse knowledge base yaml: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse knowledge base json: %w", err)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("knowledge base is empty")
	}
	return entries, nil
}

func pathLabel(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// Search embeds the query and returns the top matches by cosine similarity,
// at most TopK, ordered by non-increasing score with ties broken by entry
// insertion order. A failed query embedding degrades to an empty result.
func (ix *Index) Search(ctx context.Context, query string) ([]models.KBMatch, error) {
	start := time.Now()

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) == 0 {
		ix.logger.Warn("query embedding unavailable, returning no matches")
		return nil, nil
	}

	matches := make([]models.KBMatch, 0, len(ix.entries))
	for _, e := range ix.entries {
		matches = append(matches, models.KBMatch{
			EntryID:           e.ID,
			Title:             e.Title,
			Similarity:        CosineSimilarity(queryVec, e.Embedding),
			RecommendedAction: e.RecommendedAction,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > TopK {
		matches = matches[:TopK]
	}

	if ix.collector != nil {
		ix.collector.RecordTiming(metrics.OpKBSearch, time.Since(start))
	}
	ix.logger.Debug("kb search complete", "matches", len(matches), "duration_ms", time.Since(start).Milliseconds())
	return matches, nil
}

// IsKnownIssue reports whether a match scores at or above the configured
// similarity threshold. The boundary is inclusive.
func (ix *Index) IsKnownIssue(m models.KBMatch) bool {
	return m.Similarity >= ix.threshold
}

// Threshold returns the configured known-issue similarity threshold.
func (ix *Index) Threshold() float64 {
	return ix.threshold
}

// Len returns the number of loaded entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// CosineSimilarity computes the normalized dot product of two vectors.
// Defined as 0 when either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
