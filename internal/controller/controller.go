// Package controller implements the Analysis Controller (§4.9): the single
// orchestrator that wires File Discovery, the Semantic Parser & Chunker,
// the Embedding Generator, the per-project Vector Index, the Project
// Registry and Context Manager, and the Dynamic Adapter Loader/Trainer into
// the `analyze` and `chat` pipelines. It mirrors the fixed Runtime-value
// composition root pattern the teacher uses in cmd/nerd/main.go (one
// long-lived set of collaborators, no package-level singletons).
package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/codebase-gardener/gardener/internal/adapter"
	"github.com/codebase-gardener/gardener/internal/chunker"
	"github.com/codebase-gardener/gardener/internal/config"
	"github.com/codebase-gardener/gardener/internal/discovery"
	"github.com/codebase-gardener/gardener/internal/embedding"
	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/llmclient"
	"github.com/codebase-gardener/gardener/internal/logging"
	"github.com/codebase-gardener/gardener/internal/projectcontext"
	"github.com/codebase-gardener/gardener/internal/projects"
	"github.com/codebase-gardener/gardener/internal/registry"
	"github.com/codebase-gardener/gardener/internal/trainer"
	"github.com/codebase-gardener/gardener/internal/vectorstore"
)

// Tier names the analysis depth selected for a codebase (§4.9).
type Tier string

const (
	TierSimple   Tier = "simple"
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
)

// Capability names counted toward tier selection (§4.9): exactly these
// six, not every capability the registry happens to hold. The runtime
// composition root registers each of these under the same name.
const (
	CapRAGRetrieval        = "rag_retrieval"
	CapSemanticSearch      = "semantic_search"
	CapTrainingPipeline    = "training_pipeline"
	CapProjectManagement   = "project_management"
	CapVectorStorage       = "vector_storage"
	CapEmbeddingGeneration = "embedding_generation"
)

var tierCapabilities = []string{
	CapRAGRetrieval,
	CapSemanticSearch,
	CapTrainingPipeline,
	CapProjectManagement,
	CapVectorStorage,
	CapEmbeddingGeneration,
}

// SelectTier chooses an analysis tier from the file count being analyzed
// and the number of the six named advanced capabilities currently
// available (§4.9's tier table):
//
//	simple   <= 5 files, OR fewer than 3 capabilities available
//	standard 6-100 files AND >= 3 capabilities available
//	advanced > 100 files AND >= 5 capabilities available
//
// A codebase too large to analyze richly without enough capabilities falls
// back to standard rather than failing outright.
func SelectTier(fileCount, availableCapabilities int) Tier {
	switch {
	case fileCount <= 5 || availableCapabilities < 3:
		return TierSimple
	case fileCount > 100 && availableCapabilities >= 5:
		return TierAdvanced
	default:
		return TierStandard
	}
}

// Controller is the analysis/chat orchestrator.
type Controller struct {
	cfg       *config.Config
	reg       *registry.Registry
	proj      *projects.Registry
	contexts  *projectcontext.Manager
	loader    *adapter.Loader
	trainer   *trainer.Trainer
	embedder  embedding.Engine
	llm       *llmclient.Client

	mu     sync.Mutex
	stores map[string]*vectorstore.Store
}

// New wires a Controller from its already-constructed collaborators. Each
// collaborator is built once at startup by cmd/gardener and shared for the
// process lifetime (§5: no globals, one Runtime value).
func New(cfg *config.Config, reg *registry.Registry, proj *projects.Registry, contexts *projectcontext.Manager, loader *adapter.Loader, tr *trainer.Trainer, embedder embedding.Engine, llm *llmclient.Client) *Controller {
	return &Controller{
		cfg:      cfg,
		reg:      reg,
		proj:     proj,
		contexts: contexts,
		loader:   loader,
		trainer:  tr,
		embedder: embedder,
		llm:      llm,
		stores:   make(map[string]*vectorstore.Store),
	}
}

func (c *Controller) storeFor(projectID string) (*vectorstore.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.stores[projectID]; ok {
		return s, nil
	}

	dim := c.embedder.Dimensions()
	path := filepath.Join(c.cfg.Paths().ProjectVectorStoreDir(projectID), "index.db")
	s, err := vectorstore.Open(path, dim)
	if err != nil {
		return nil, err
	}
	c.stores[projectID] = s
	return s, nil
}

// AnalyzeResult summarizes one `analyze` run.
type AnalyzeResult struct {
	Project      *gardenertypes.Project
	Tier         Tier
	FilesWalked  int
	ChunksStored int
}

// Analyze registers sourcePath as a project (if not already known) and
// ingests it: discover files, chunk them, embed the chunks, and upsert
// them into the project's vector index. The tier comes from SelectTier;
// mode == "advanced" additionally kicks off adapter training when the
// selected tier is advanced, and any other mode value only ingests
// (§4.9 analyze pipeline).
func (c *Controller) Analyze(ctx context.Context, sourcePath, mode string) (*AnalyzeResult, error) {
	log := logging.Get(logging.CategoryController)
	timer := logging.StartTimer(logging.CategoryController, "analyze "+sourcePath)
	defer timer.Stop()

	name := filepath.Base(sourcePath)
	var proj *gardenertypes.Project
	for _, p := range c.proj.List() {
		if p.SourcePath == sourcePath {
			proj = p
			break
		}
	}
	if proj == nil {
		registered, err := c.proj.Register(name, sourcePath)
		if err != nil {
			return nil, err
		}
		proj = registered
	}

	walkResult, err := discovery.Walk(ctx, sourcePath, discovery.Options{})
	if err != nil {
		return nil, errs.Wrap(errs.KindIngest, "discovery failed", err)
	}

	features := c.reg.Features()
	available := 0
	for _, capName := range tierCapabilities {
		if f, ok := features[capName]; ok && f.Available {
			available++
		}
	}
	tier := SelectTier(len(walkResult.Files), available)
	log.Info("analyzing %s: %d files, tier=%s", sourcePath, len(walkResult.Files), tier)

	store, err := c.storeFor(proj.ID)
	if err != nil {
		return nil, err
	}

	chunkCfg := chunker.Config{MinChars: c.cfg.Chunking.MinChars, MaxChars: c.cfg.Chunking.MaxChars}
	stored := 0

	for _, file := range walkResult.Files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		content, readErr := readFile(file.Path)
		if readErr != nil {
			log.Warn("skipping unreadable file %s: %v", file.Path, readErr)
			continue
		}

		chunks, chunkErr := chunker.ChunkFile(proj.ID, file.Path, file.Language, content, chunkCfg)
		if chunkErr != nil {
			log.Warn("skipping unparseable file %s: %v", file.Path, chunkErr)
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		vectors, embedErr := c.embedder.EmbedBatch(ctx, texts)
		if embedErr != nil {
			log.Warn("skipping embeddings for %s: %v", file.Path, embedErr)
			continue
		}

		items := make([]vectorstore.BatchItem, len(chunks))
		for i, ch := range chunks {
			items[i] = vectorstore.BatchItem{
				Chunk:  ch,
				Vector: vectors[i],
				Metadata: map[string]interface{}{
					"language": ch.Language,
					"kind":     string(ch.Kind),
				},
			}
		}
		if err := store.UpsertBatch(items); err != nil {
			return nil, err
		}
		stored += len(items)
	}

	if mode == "advanced" && tier == TierAdvanced {
		if err := c.proj.UpdateStatus(proj.ID, gardenertypes.TrainingInProgress, ""); err == nil {
			_, trainErr := c.trainer.Start(ctx, proj.ID, 100, 10, nil, func(ctx context.Context, n int) error { return nil })
			if trainErr != nil {
				_ = c.proj.UpdateStatus(proj.ID, gardenertypes.TrainingFailed, trainErr.Error())
			}
		}
	}

	return &AnalyzeResult{Project: proj, Tier: tier, FilesWalked: len(walkResult.Files), ChunksStored: stored}, nil
}

// ChatResult is the outcome of one `chat` turn.
type ChatResult struct {
	Answer         string
	RetrievedChunk []gardenertypes.RetrievedChunk
	UsedAdapter    bool
}

// Chat answers a question about a project by retrieving similar chunks
// from its vector index, asking the loader for its adapter, and calling the
// LLM. Retrieval and adapter absence degrade the response instead of
// failing the whole request, but the LLM itself is not optional: if it is
// unreachable, Chat surfaces the LLMUnavailable/LLMTimeout error unchanged
// and appends nothing to the project's conversation context - neither the
// user's question nor a fabricated assistant reply (§4.9 step 6, scenario
// F).
func (c *Controller) Chat(ctx context.Context, projectID, question string) (*ChatResult, error) {
	proj, err := c.proj.Get(projectID)
	if err != nil {
		return nil, err
	}

	store, err := c.storeFor(proj.ID)
	if err != nil {
		return nil, err
	}

	queryVec, embedErr := c.embedder.Embed(ctx, question)
	var retrieved []gardenertypes.RetrievedChunk
	if embedErr != nil {
		logging.Get(logging.CategoryController).Warn("embedding unavailable for chat, skipping retrieval: %v", embedErr)
	} else {
		retrieved, err = store.Search(queryVec, c.cfg.Retrieval.TopK, c.cfg.Retrieval.MinScore, nil)
		if err != nil {
			return nil, err
		}
	}

	usedAdapter := false
	if handle, loadErr := c.loader.Load(proj.ID, c.cfg.Paths().ProjectAdapterDir(proj.ID), 0); loadErr == nil && !handle.NoAdapter {
		usedAdapter = true
	}

	prompt := buildPrompt(question, retrieved)

	var answer string
	if c.llm != nil {
		answer, err = c.llm.Chat(ctx, []llmclient.Message{
			{Role: "system", Content: "You are a codebase analysis assistant."},
			{Role: "user", Content: prompt},
		})
		if err != nil {
			logging.Get(logging.CategoryController).Warn("llm unreachable, not persisting conversation turn: %v", err)
			return nil, err
		}
	} else {
		answer = summarizeRetrieval(retrieved)
	}

	if addErr := c.contexts.AddMessage(proj.ID, gardenertypes.ConversationMessage{
		Role: gardenertypes.RoleUser, Content: question,
	}); addErr != nil {
		logging.Get(logging.CategoryController).Warn("failed to persist user message: %v", addErr)
	}
	if addErr := c.contexts.AddMessage(proj.ID, gardenertypes.ConversationMessage{
		Role: gardenertypes.RoleAssistant, Content: answer,
	}); addErr != nil {
		logging.Get(logging.CategoryController).Warn("failed to persist assistant message: %v", addErr)
	}

	return &ChatResult{Answer: answer, RetrievedChunk: retrieved, UsedAdapter: usedAdapter}, nil
}

func buildPrompt(question string, retrieved []gardenertypes.RetrievedChunk) string {
	prompt := "Question: " + question + "\n\nRelevant code:\n"
	for _, r := range retrieved {
		prompt += fmt.Sprintf("- chunk %s (score %.3f)\n", r.ChunkID, r.Score)
	}
	return prompt
}

func summarizeRetrieval(retrieved []gardenertypes.RetrievedChunk) string {
	if len(retrieved) == 0 {
		return "No relevant code was found and the language model is unavailable."
	}
	return fmt.Sprintf("Language model unavailable; %d relevant chunks were retrieved but not summarized.", len(retrieved))
}

// Features reports availability for every registered capability, for the
// `features` CLI command.
func (c *Controller) Features() map[string]registry.FeatureStatus {
	return c.reg.Features()
}

// Switch marks projectID as the active project for `chat` without an
// explicit project id.
func (c *Controller) Switch(projectID string) error {
	return c.proj.SetActive(projectID)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
