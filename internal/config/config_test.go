package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 8, cfg.Context.MaxContextsInMemory)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "llama3"
	cfg.Retrieval.TopK = 9
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", loaded.LLM.Model)
	assert.Equal(t, 9, loaded.Retrieval.TopK)
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("LLM_HOST", "http://example.internal:9999")
	t.Setenv("RETRIEVAL_TOP_K", "12")
	t.Setenv("DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://example.internal:9999", cfg.LLM.Host)
	assert.Equal(t, 12, cfg.Retrieval.TopK)
	assert.True(t, cfg.Logging.Debug)
}

func TestGetTimeoutsFallBackOnBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.ConnectTimeout = "not-a-duration"
	cfg.LLM.RequestTimeout = ""

	assert.Equal(t, defaultConnectTimeout, cfg.GetConnectTimeout())
	assert.Equal(t, defaultRequestTimeout, cfg.GetRequestTimeout())
}

func TestPathsResolveUnderDataRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataRoot = "/tmp/gardener-test"
	paths := cfg.Paths()

	assert.Equal(t, "/tmp/gardener-test/projects/abc/metadata.json", paths.ProjectMetadataFile("abc"))
	assert.Equal(t, "/tmp/gardener-test/projects/abc/vector_store", paths.ProjectVectorStoreDir("abc"))
	assert.Equal(t, "/tmp/gardener-test/registry.json", paths.RegistryFile)
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no-perm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_root: /x\n"), 0000))
	t.Cleanup(func() { _ = os.Chmod(path, 0644) })

	if os.Geteuid() == 0 {
		t.Skip("running as root, permission bits are not enforced")
	}

	_, err := Load(path)
	assert.Error(t, err)
}
