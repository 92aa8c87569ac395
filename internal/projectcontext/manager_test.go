package projectcontext

import (
	"path/filepath"
	"testing"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(dir string) PathResolver {
	return func(id string) string { return filepath.Join(dir, id+".json") }
}

func TestAddMessagePersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(8, 200, testResolver(dir))

	require.NoError(t, m.AddMessage("proj1", gardenertypes.ConversationMessage{
		Role: gardenertypes.RoleUser, Content: "hello",
	}))

	m2 := NewManager(8, 200, testResolver(dir))
	msgs, err := m2.Recent("proj1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestEvictionPersistsLRUVictim(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(2, 200, testResolver(dir))

	require.NoError(t, m.AddMessage("a", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "a1"}))
	require.NoError(t, m.AddMessage("b", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "b1"}))
	require.NoError(t, m.AddMessage("c", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "c1"}))

	assert.Equal(t, 2, m.InMemoryCount())

	msgs, err := m.Recent("a", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a1", msgs[0].Content)
}

func TestTrimPreservesSystemMessages(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(8, 3, testResolver(dir))

	require.NoError(t, m.AddMessage("proj1", gardenertypes.ConversationMessage{Role: gardenertypes.RoleSystem, Content: "sys"}))
	require.NoError(t, m.AddMessage("proj1", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "u1"}))
	require.NoError(t, m.AddMessage("proj1", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "u2"}))
	require.NoError(t, m.AddMessage("proj1", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "u3"}))

	msgs, err := m.Recent("proj1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, gardenertypes.RoleSystem, msgs[0].Role)
	assert.Equal(t, "u2", msgs[1].Content)
	assert.Equal(t, "u3", msgs[2].Content)
}

func TestClearEmptiesMessages(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(8, 200, testResolver(dir))
	require.NoError(t, m.AddMessage("proj1", gardenertypes.ConversationMessage{Role: gardenertypes.RoleUser, Content: "hi"}))

	require.NoError(t, m.Clear("proj1"))

	msgs, err := m.Recent("proj1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
