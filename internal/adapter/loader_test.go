package adapter

import (
	"testing"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEvictsLRUWhenOverBudget(t *testing.T) {
	l := New(100, 0, nil)

	_, err := l.Load("a", "/a", 60)
	require.NoError(t, err)
	_, err = l.Load("b", "/b", 60)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, l.Active())
}

func TestLoadReturnsResourceExhaustedWhenAllPinned(t *testing.T) {
	l := New(100, 0, nil)

	_, err := l.Load("a", "/a", 90)
	require.NoError(t, err)

	err = l.WithAdapter("a", func(h *Handle) error {
		_, loadErr := l.Load("b", "/b", 90)
		require.Error(t, loadErr)
		assert.True(t, errs.Is(loadErr, errs.KindResourceExhausted))
		return nil
	})
	require.NoError(t, err)
}

func TestLoadWithUnavailableRuntimeReturnsStandIn(t *testing.T) {
	l := New(100, 0, func() (bool, string) { return false, "no GPU detected" })

	h, err := l.Load("a", "/a", 10)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindCapabilityUnavailable))
	assert.Same(t, NoAdapterHandle, h)
}

func TestUnloadWhilePinnedIsUserError(t *testing.T) {
	l := New(100, 0, nil)
	_, err := l.Load("a", "/a", 10)
	require.NoError(t, err)

	err = l.WithAdapter("a", func(h *Handle) error {
		unloadErr := l.Unload("a")
		require.Error(t, unloadErr)
		assert.True(t, errs.Is(unloadErr, errs.KindUser))
		return nil
	})
	require.NoError(t, err)
}

func TestLoadSameProjectTwiceReusesEntry(t *testing.T) {
	l := New(100, 0, nil)
	h1, err := l.Load("a", "/a", 10)
	require.NoError(t, err)
	h2, err := l.Load("a", "/a", 10)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, int64(10), l.UsedBytes())
}
