// Package llmclient talks to a local LLM inference server (§4.9), mirroring
// the connect-timeout/request-timeout split and error-taxonomy mapping the
// teacher applies to its own HTTP-backed capabilities (e.g.
// internal/embedding/ollama.go's client construction), generalized here to
// a generic chat-completion request/response shape.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/codebase-gardener/gardener/internal/errs"
)

// Client is a minimal HTTP client for a local chat-completion endpoint.
type Client struct {
	host           string
	model          string
	connectTimeout time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
}

// New builds a Client. host defaults to http://localhost:11434.
func New(host, model string, connectTimeout, requestTimeout time.Duration) *Client {
	if host == "" {
		host = "http://localhost:11434"
	}
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	if requestTimeout <= 0 {
		requestTimeout = 120 * time.Second
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{DialContext: dialer.DialContext}

	return &Client{
		host:           host,
		model:          model,
		connectTimeout: connectTimeout,
		requestTimeout: requestTimeout,
		httpClient:     &http.Client{Transport: transport, Timeout: requestTimeout},
	}
}

// Message is one turn of a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	Content string `json:"content"`
}

// Chat sends a conversation to the local LLM and returns its reply.
// Network failures map to LLMUnavailable; a request that exceeds
// requestTimeout maps to LLMTimeout (§7).
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeoutErr(err) {
			return "", errs.Wrap(errs.KindLLMTimeout, "llm request exceeded timeout", err)
		}
		return "", errs.Wrap(errs.KindLLMUnavailable, "llm request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", errs.New(errs.KindLLMUnavailable, fmt.Sprintf("llm returned %d: %s", resp.StatusCode, string(data)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return out.Message.Content, nil
}

func isTimeoutErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HealthCheck confirms the LLM endpoint answers, for registry probing.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindLLMUnavailable, "llm endpoint not reachable", err)
	}
	defer resp.Body.Close()
	return nil
}
