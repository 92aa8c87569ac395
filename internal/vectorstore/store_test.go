package vectorstore

import (
	"path/filepath"
	"testing"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	s, err := Open(path, 3)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func chunk(id, filePath string) gardenertypes.Chunk {
	return gardenertypes.Chunk{ID: id, ProjectID: "proj1", FilePath: filePath, Kind: gardenertypes.ChunkFunction, Text: "body"}
}

func TestUpsertAndSearchReturnsClosestMatch(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Upsert(chunk("a", "a.go"), []float32{1, 0, 0}, map[string]interface{}{"lang": "go"}))
	require.NoError(t, s.Upsert(chunk("b", "b.go"), []float32{0, 1, 0}, map[string]interface{}{"lang": "go"}))

	results, err := s.Search([]float32{1, 0, 0}, 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestDeleteRemovesChunk(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Upsert(chunk("a", "a.go"), []float32{1, 0, 0}, nil))

	require.NoError(t, s.Delete("a"))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteUnknownIDIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Delete("does-not-exist"))
}

func TestSearchAppliesMetadataFilter(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Upsert(chunk("a", "a.go"), []float32{1, 0, 0}, map[string]interface{}{"lang": "go"}))
	require.NoError(t, s.Upsert(chunk("b", "b.py"), []float32{1, 0, 0}, map[string]interface{}{"lang": "python"}))

	results, err := s.Search([]float32{1, 0, 0}, 10, 0, map[string]string{"lang": "python"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)
}

func TestSearchRespectsMinScore(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Upsert(chunk("a", "a.go"), []float32{1, 0, 0}, nil))
	require.NoError(t, s.Upsert(chunk("b", "b.go"), []float32{-1, 0, 0}, nil))

	results, err := s.Search([]float32{1, 0, 0}, 10, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestDeleteByFilePathRemovesAllChunksInFile(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Upsert(chunk("a", "a.go"), []float32{1, 0, 0}, nil))
	require.NoError(t, s.Upsert(chunk("a2", "a.go"), []float32{0, 1, 0}, nil))
	require.NoError(t, s.Upsert(chunk("b", "b.go"), []float32{0, 0, 1}, nil))

	require.NoError(t, s.DeleteByFilePath("a.go"))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
