package chunker

import (
	"testing"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

import (
	"fmt"
	"strings"
)

type Widget struct {
	Name string
}

func Greet(w Widget) string {
	if w.Name == "" {
		return "hello"
	}
	return fmt.Sprintf("hello %s", strings.ToUpper(w.Name))
}
`

func TestChunkFileGoProducesImportTypeAndFunction(t *testing.T) {
	chunks, err := ChunkFile("proj1", "sample.go", "go", goSample, Config{MinChars: 1, MaxChars: 10000})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var kinds []gardenertypes.ChunkKind
	for _, c := range chunks {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, gardenertypes.ChunkImport)
	assert.Contains(t, kinds, gardenertypes.ChunkClass)
	assert.Contains(t, kinds, gardenertypes.ChunkFunction)
}

func TestChunkFileAssignsStableIDs(t *testing.T) {
	c1, err := ChunkFile("proj1", "sample.go", "go", goSample, DefaultConfig())
	require.NoError(t, err)
	c2, err := ChunkFile("proj1", "sample.go", "go", goSample, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, len(c1), len(c2))
	for i := range c1 {
		assert.Equal(t, c1[i].ID, c2[i].ID)
	}
}

func TestChunkFileUnsupportedLanguage(t *testing.T) {
	_, err := ChunkFile("proj1", "a.rb", "ruby", "puts 1", DefaultConfig())
	require.Error(t, err)
}

func TestChunkFileFallsBackToBlockOnEmptyExtraction(t *testing.T) {
	chunks, err := ChunkFile("proj1", "empty.go", "go", "package empty\n", Config{MinChars: 1, MaxChars: 10000})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, gardenertypes.ChunkBlock, chunks[0].Kind)
}

func TestChunkFileSplitsOversizedChunks(t *testing.T) {
	var body string
	for i := 0; i < 200; i++ {
		body += "\tfmt.Println(\"line\")\n"
	}
	src := "package sample\n\nimport \"fmt\"\n\nfunc Big() {\n" + body + "}\n"

	chunks, err := ChunkFile("proj1", "big.go", "go", src, Config{MinChars: 1, MaxChars: 200})
	require.NoError(t, err)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 400) // allow one line of slack past the boundary
	}
}

const pythonSample = `import os

class Greeter:
    def greet(self, name):
        if name:
            return "hi " + name
        return "hi"
`

func TestChunkFilePython(t *testing.T) {
	chunks, err := ChunkFile("proj1", "sample.py", "python", pythonSample, Config{MinChars: 1, MaxChars: 10000})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var kinds []gardenertypes.ChunkKind
	for _, c := range chunks {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, gardenertypes.ChunkClass)
	assert.Contains(t, kinds, gardenertypes.ChunkFunction)
}
