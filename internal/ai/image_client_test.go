package ai_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"elysium-server/internal/ai"
	"elysium-server/internal/config"
	"elysium-server/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPNG = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func newImageGenerator(t *testing.T, serverURL string) ai.ImageGenerator {
	t.Helper()
	return ai.NewImageGenerator(config.ImageConfig{
		BaseURL:        serverURL,
		Timeout:        2 * time.Second,
		MaxAttempts:    2,
		BaseRetryDelay: 10 * time.Millisecond,
	}, zerolog.Nop())
}

func TestImageGenerator_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(testPNG)
	}))
	defer server.Close()

	data, err := newImageGenerator(t, server.URL).Generate(context.Background(), "a dim hallway")
	require.NoError(t, err)
	assert.Equal(t, testPNG, data)
}

func TestImageGenerator_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Прогрев модели у inference-эндпоинта
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(testPNG)
	}))
	defer server.Close()

	data, err := newImageGenerator(t, server.URL).Generate(context.Background(), "a dim hallway")
	require.NoError(t, err, "single transient failure must be retried transparently")
	assert.Equal(t, testPNG, data)
	assert.Equal(t, int32(2), calls.Load())
}

func TestImageGenerator_TwoTransientFailuresAreTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newImageGenerator(t, server.URL).Generate(context.Background(), "a dim hallway")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "exactly one bounded retry")
}

func TestImageGenerator_RejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newImageGenerator(t, server.URL).Generate(context.Background(), "a dim hallway")
	assert.ErrorIs(t, err, domain.ErrUpstreamRejected)
	assert.Equal(t, int32(1), calls.Load(), "terminal failures must not be retried")
}

func TestImageGenerator_OversizedBodyIsRejected(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// На один байт больше потолка размера ответа
		_, _ = w.Write(bytes.Repeat([]byte{0x1}, 16<<20+1))
	}))
	defer server.Close()

	_, err := newImageGenerator(t, server.URL).Generate(context.Background(), "a dim hallway")
	assert.ErrorIs(t, err, domain.ErrUpstreamRejected)
	assert.Equal(t, int32(1), calls.Load(), "oversized responses must not be retried")
}

func TestImageGenerator_EmptyBodyIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := newImageGenerator(t, server.URL).Generate(context.Background(), "a dim hallway")
	assert.ErrorIs(t, err, domain.ErrUpstreamRejected)
}
