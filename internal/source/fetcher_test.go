package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(attempts int) *Fetcher {
	return NewFetcher(FetcherConfig{
		Timeout:        2 * time.Second,
		UserAgent:      "ingest-test/1.0",
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ingest-test/1.0", r.Header.Get("User-Agent"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher(3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(3).Get(context.Background(), srv.URL)
	require.Error(t, err)

	var se *statusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcher_RetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestFetcher(2).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcher_CalculateBackoff(t *testing.T) {
	f := NewFetcher(FetcherConfig{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
	}, slog.Default())

	assert.Equal(t, 100*time.Millisecond, f.calculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, f.calculateBackoff(2))
	assert.Equal(t, 300*time.Millisecond, f.calculateBackoff(3))
}

func TestValidImageURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.jpg", ValidImageURL("  https://cdn.example.com/a.jpg "))
	assert.Empty(t, ValidImageURL("/relative/a.jpg"))
	assert.Empty(t, ValidImageURL("data:image/png;base64,AAAA"))
	assert.Empty(t, ValidImageURL("https://x/"+string(make([]byte, maxImageURLLength))))
}
