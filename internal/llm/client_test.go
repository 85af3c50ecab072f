package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama3-70b-8192",
			"choices": [{"message": {"role": "assistant", "content": "{\"category\":\"policy\"}"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 14}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, APIKey: "key-1", Model: "llama3-70b-8192", MaxTokens: 64})
	out, err := c.Complete(context.Background(), "classify this")
	require.NoError(t, err)

	assert.Equal(t, `{"category":"policy"}`, out.Text)
	assert.Equal(t, 120, out.TokensIn)
	assert.Equal(t, 14, out.TokensOut)
	assert.Equal(t, "llama3-70b-8192", out.Model)
	assert.Equal(t, "classify this", got.Messages[0].Content)
	assert.Equal(t, 64, got.MaxTokens)
}

func TestComplete_NoAPIKey(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://unused", Model: "m"})
	_, err := c.Complete(context.Background(), "p")
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	_, err := c.Complete(context.Background(), "p")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "rate limited")
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, APIKey: "k", Model: "m", Timeout: 50 * time.Millisecond})
	_, err := c.Complete(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [], "usage": {"prompt_tokens": 3, "completion_tokens": 0}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	out, err := c.Complete(context.Background(), "p")

	require.Error(t, err)
	assert.Equal(t, 3, out.TokensIn)
}
