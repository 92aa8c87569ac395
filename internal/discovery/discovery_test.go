package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestWalkSkipsExcludedDirsBeforeDescending(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")

	result, err := Walk(context.Background(), root, Options{})
	require.NoError(t, err)

	for _, f := range result.Files {
		assert.NotContains(t, f.Path, "node_modules")
		assert.NotContains(t, f.Path, ".git")
	}
	assert.Contains(t, result.SkippedDirs, filepath.Join(root, "node_modules"))
	assert.Contains(t, result.SkippedDirs, filepath.Join(root, ".git"))
}

func TestWalkClassifiesLanguageByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.py", "x = 1")
	writeFile(t, root, "c.unknown", "???")

	result, err := Walk(context.Background(), root, Options{})
	require.NoError(t, err)

	langs := map[string]string{}
	for _, f := range result.Files {
		langs[filepath.Base(f.Path)] = f.Language
	}
	assert.Equal(t, "go", langs["a.go"])
	assert.Equal(t, "python", langs["b.py"])
	assert.Equal(t, "unknown", langs["c.unknown"])
}

func TestWalkCountsUnknownLanguageFilesInsteadOfDroppingThem(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "README.md", "# hello")
	writeFile(t, root, "config.yaml", "key: value")

	result, err := Walk(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Len(t, result.Files, 3)
	unknownCount := 0
	for _, f := range result.Files {
		if f.Language == "unknown" {
			unknownCount++
		}
	}
	assert.Equal(t, 2, unknownCount)
}

func TestWalkReportsProgress(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, root, filepath.Join("pkg", filepathName(i)), "package pkg")
	}

	var calls []int
	_, err := Walk(context.Background(), root, Options{
		ProgressEvery: 2,
		OnProgress:    func(n int) { calls = append(calls, n) },
	})
	require.NoError(t, err)
	assert.NotEmpty(t, calls)
}

func TestWalkRespectsContextCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Walk(ctx, root, Options{})
	assert.Error(t, err)
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("foo_test.go"))
	assert.True(t, IsTestFile("src/tests/thing.py"))
	assert.True(t, IsTestFile("test_thing.py"))
	assert.False(t, IsTestFile("main.go"))
}

func filepathName(i int) string {
	return "f" + string(rune('a'+i)) + ".go"
}
