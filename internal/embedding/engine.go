// Package embedding implements the Embedding Generator capability (§4.4),
// grounded on the teacher's internal/embedding/engine.go EmbeddingEngine
// interface and NewEngine factory, with Ollama and GenAI backends kept in
// their own files as the teacher does.
package embedding

import (
	"context"
	"math"
	"sort"

	"github.com/codebase-gardener/gardener/internal/config"
	"github.com/codebase-gardener/gardener/internal/errs"
)

// Engine turns text into a fixed-dimension vector.
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// HealthChecker is implemented by engines that can cheaply self-test
// before being registered as available.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewEngine builds the configured embedding engine.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel), nil
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel, cfg.TaskType)
	default:
		return nil, errs.New(errs.KindUser, "unknown embedding provider: "+cfg.Provider)
	}
}

// CosineSimilarity returns the cosine similarity of two equal-length
// vectors, or 0 if either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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

// SimilarityResult pairs a corpus index with its similarity to a query.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK returns the k most similar vectors in corpus to query, sorted
// descending by similarity.
func FindTopK(query []float32, corpus [][]float32, k int) []SimilarityResult {
	results := make([]SimilarityResult, len(corpus))
	for i, v := range corpus {
		results[i] = SimilarityResult{Index: i, Similarity: CosineSimilarity(query, v)}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results
}
