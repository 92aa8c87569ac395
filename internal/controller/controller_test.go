package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebase-gardener/gardener/internal/adapter"
	"github.com/codebase-gardener/gardener/internal/config"
	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/llmclient"
	"github.com/codebase-gardener/gardener/internal/projectcontext"
	"github.com/codebase-gardener/gardener/internal/projects"
	"github.com/codebase-gardener/gardener/internal/registry"
	"github.com/codebase-gardener/gardener/internal/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }
func (fakeEmbedder) Name() string    { return "fake" }

func newTestController(t *testing.T) (*Controller, string) {
	t.Helper()
	dataRoot := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataRoot = dataRoot

	reg := registry.New()
	projReg, err := projects.Open(cfg.Paths().RegistryFile)
	require.NoError(t, err)
	ctxMgr := projectcontext.NewManager(cfg.Context.MaxContextsInMemory, cfg.Context.MaxMessagesPerProject,
		func(id string) string { return cfg.Paths().ProjectContextFile(id) })
	loader := adapter.New(cfg.Adapter.MaxMemoryBytes, cfg.Adapter.MaxCached, func() (bool, string) { return false, "no adapter runtime installed" })
	tr := trainer.New(func() (bool, string) { return false, "no training runtime installed" })

	ctrl := New(cfg, reg, projReg, ctxMgr, loader, tr, fakeEmbedder{}, nil)
	return ctrl, dataRoot
}

func writeSourceFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestAnalyzeIngestsFilesAndStoresChunks(t *testing.T) {
	ctrl, _ := newTestController(t)

	source := t.TempDir()
	writeSourceFile(t, source, "main.go", "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	result, err := ctrl.Analyze(context.Background(), source, "standard")
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesWalked)
	assert.Greater(t, result.ChunksStored, 0)
}

func TestChatDegradesToRetrievalSummaryWithoutLLM(t *testing.T) {
	ctrl, _ := newTestController(t)

	source := t.TempDir()
	writeSourceFile(t, source, "main.go", "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	result, err := ctrl.Analyze(context.Background(), source, "standard")
	require.NoError(t, err)

	chatResult, err := ctrl.Chat(context.Background(), result.Project.ID, "what does Hello do?")
	require.NoError(t, err)
	assert.NotEmpty(t, chatResult.Answer)
	assert.False(t, chatResult.UsedAdapter)

	messages, err := ctrl.contexts.Recent(result.Project.ID, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestSelectTier(t *testing.T) {
	// Fixtures from §4.9's property 8: file counts {3, 50, 500} crossed
	// with capability counts {0, 3, 5}.
	assert.Equal(t, TierSimple, SelectTier(3, 0))
	assert.Equal(t, TierSimple, SelectTier(3, 3))
	assert.Equal(t, TierSimple, SelectTier(3, 5))
	assert.Equal(t, TierSimple, SelectTier(50, 0))
	assert.Equal(t, TierStandard, SelectTier(50, 3))
	assert.Equal(t, TierStandard, SelectTier(50, 5))
	assert.Equal(t, TierSimple, SelectTier(500, 0))
	assert.Equal(t, TierStandard, SelectTier(500, 3))
	assert.Equal(t, TierAdvanced, SelectTier(500, 5))

	// boundaries
	assert.Equal(t, TierSimple, SelectTier(5, 5))
	assert.Equal(t, TierStandard, SelectTier(6, 3))
	assert.Equal(t, TierStandard, SelectTier(100, 5))
	assert.Equal(t, TierAdvanced, SelectTier(101, 5))
}

func TestChatSurfacesLLMUnavailableAndDoesNotPersistConversation(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctrl.llm = llmclient.New("http://127.0.0.1:1", "test-model", 100*time.Millisecond, time.Second)

	source := t.TempDir()
	writeSourceFile(t, source, "main.go", "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	result, err := ctrl.Analyze(context.Background(), source, "standard")
	require.NoError(t, err)

	_, err = ctrl.Chat(context.Background(), result.Project.ID, "what does Hello do?")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindLLMUnavailable))

	messages, err := ctrl.contexts.Recent(result.Project.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSwitchSetsActiveProject(t *testing.T) {
	ctrl, _ := newTestController(t)
	source := t.TempDir()
	writeSourceFile(t, source, "main.go", "package main\n")

	result, err := ctrl.Analyze(context.Background(), source, "standard")
	require.NoError(t, err)

	require.NoError(t, ctrl.Switch(result.Project.ID))
}
