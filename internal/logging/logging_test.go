package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggingLifecycle exercises Initialize, Get, writing, and CloseAll in
// one sequence since logging keeps process-wide state shared across tests.
func TestLoggingLifecycle(t *testing.T) {
	dataRoot := t.TempDir()

	require.NoError(t, Initialize(dataRoot, true, "debug"))
	t.Cleanup(CloseAll)

	Get(CategoryChunker).Info("parsed %d files", 3)
	Get(CategoryChunker).Debug("boundary at line %d", 12)

	logPath := filepath.Join(dataRoot, "logs", "chunker.log")
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "parsed 3 files")
	assert.Contains(t, string(data), "boundary at line 12")
}

func TestLoggingRespectsLevelFilter(t *testing.T) {
	dataRoot := t.TempDir()

	require.NoError(t, Initialize(dataRoot, true, "warn"))
	t.Cleanup(CloseAll)

	Get(CategoryLoader).Debug("should be filtered out")
	Get(CategoryLoader).Warn("should appear")

	data, err := os.ReadFile(filepath.Join(dataRoot, "logs", "loader.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be filtered out")
	assert.Contains(t, string(data), "should appear")
}

func TestLoggingIsNoopWhenDisabled(t *testing.T) {
	dataRoot := t.TempDir()

	require.NoError(t, Initialize(dataRoot, false, "debug"))
	t.Cleanup(CloseAll)

	Get(CategoryTrainer).Info("this should never be written")

	_, err := os.Stat(filepath.Join(dataRoot, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestTimerStopReturnsNonNegativeDuration(t *testing.T) {
	dataRoot := t.TempDir()
	require.NoError(t, Initialize(dataRoot, true, "debug"))
	t.Cleanup(CloseAll)

	timer := StartTimer(CategoryController, "ingest")
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
}
