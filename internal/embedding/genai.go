package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/codebase-gardener/gardener/internal/errs"
)

// GenAIEngine calls Google's Generative AI embeddings API, used as the
// remote alternative to OllamaEngine when a project opts into a hosted
// provider (§4.4).
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGenAIEngine constructs a GenAI-backed engine. A missing API key is not
// an error here; it surfaces as an unavailable capability once HealthCheck
// is probed by the registry.
func NewGenAIEngine(apiKey, model, taskType string) (*GenAIEngine, error) {
	if model == "" {
		model = "gemini-embedding-001"
	}
	if taskType == "" {
		taskType = "SEMANTIC_SIMILARITY"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindCapabilityUnavailable, "genai client init failed", err)
	}

	return &GenAIEngine{client: client, model: model, taskType: taskType}, nil
}

// Embed requests a single embedding from the GenAI API.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: e.taskType})
	if err != nil {
		return nil, errs.Wrap(errs.KindLLMUnavailable, "genai embed request failed", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, errs.New(errs.KindLLMUnavailable, "genai returned no embeddings")
	}
	return result.Embeddings[0].Values, nil
}

// EmbedBatch submits all texts as separate content items in one request.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents,
		&genai.EmbedContentConfig{TaskType: e.taskType})
	if err != nil {
		return nil, errs.Wrap(errs.KindLLMUnavailable, "genai batch embed request failed", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, errs.New(errs.KindLLMUnavailable, fmt.Sprintf("genai returned %d embeddings for %d inputs", len(result.Embeddings), len(texts)))
	}

	out := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions reports gemini-embedding-001's default output size.
func (e *GenAIEngine) Dimensions() int { return 3072 }

// Name identifies this engine for registry/logging purposes.
func (e *GenAIEngine) Name() string { return "genai:" + e.model }

// HealthCheck performs a minimal embed call to confirm the API key and
// network path both work.
func (e *GenAIEngine) HealthCheck(ctx context.Context) error {
	_, err := e.Embed(ctx, "healthcheck")
	return err
}
