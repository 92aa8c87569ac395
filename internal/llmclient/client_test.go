package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatReturnsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"content":"hello there"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", time.Second, time.Second)
	reply, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestChatMapsNonOKStatusToLLMUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", time.Second, time.Second)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindLLMUnavailable))
}

func TestChatMapsUnreachableHostToLLMUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", "test-model", 100*time.Millisecond, time.Second)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindLLMUnavailable))
}

func TestChatMapsSlowServerToLLMTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"message":{"content":"too late"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", time.Second, 10*time.Millisecond)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindLLMTimeout))
}

func TestHealthCheckSucceedsAgainstLiveServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", time.Second, time.Second)
	assert.NoError(t, c.HealthCheck(context.Background()))
}

func TestHealthCheckFailsAgainstUnreachableHost(t *testing.T) {
	c := New("http://127.0.0.1:1", "test-model", 100*time.Millisecond, time.Second)
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New("", "", 0, 0)
	assert.Equal(t, "http://localhost:11434", c.host)
	assert.Equal(t, 5*time.Second, c.connectTimeout)
	assert.Equal(t, 120*time.Second, c.requestTimeout)
}
