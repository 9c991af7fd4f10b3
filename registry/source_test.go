package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codymoss/hopgate/cache"
)

const sourceTestDoc = `
platforms:
  - id: gh
    base_url: https://github.com
  - id: pypi
    base_url: https://pypi.org
`

func TestSourceLoad(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sourceTestDoc))
	}))
	defer server.Close()

	source, err := NewSource(SourceConfig{URL: server.URL})
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()

	reg, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int32(1), requests.Load())

	// Second load is served from the fresh cache without a request.
	reg, err = source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int32(1), requests.Load())
}

func TestSourceConditionalRevalidation(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sourceTestDoc))
	}))
	defer server.Close()

	store := cache.NewMemoryStore(cache.Config{TTL: time.Millisecond, StaleTime: time.Hour})
	source, err := NewSource(SourceConfig{URL: server.URL, Cache: store})
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()

	_, err = source.Load(ctx)
	require.NoError(t, err)

	// Let the entry go stale so the next load revalidates.
	time.Sleep(5 * time.Millisecond)

	reg, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int32(2), requests.Load())
}

func TestSourceStaleFallback(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sourceTestDoc))
	}))
	defer server.Close()

	store := cache.NewMemoryStore(cache.Config{TTL: time.Millisecond, StaleTime: time.Hour})
	source, err := NewSource(SourceConfig{
		URL:   server.URL,
		Cache: store,
		Retry: RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond},
	})
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()

	_, err = source.Load(ctx)
	require.NoError(t, err)

	healthy.Store(false)
	time.Sleep(5 * time.Millisecond)

	// Origin is down but the stale document still serves.
	reg, err := source.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestSourceRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sourceTestDoc))
	}))
	defer server.Close()

	source, err := NewSource(SourceConfig{
		URL:   server.URL,
		Retry: RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond},
	})
	require.NoError(t, err)
	defer source.Close()

	reg, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int32(2), requests.Load())
}

func TestSourceDoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source, err := NewSource(SourceConfig{
		URL:   server.URL,
		Retry: RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond},
	})
	require.NoError(t, err)
	defer source.Close()

	_, err = source.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestSourceRefreshThrottled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sourceTestDoc))
	}))
	defer server.Close()

	source, err := NewSource(SourceConfig{
		URL:                server.URL,
		MinRefreshInterval: time.Hour,
	})
	require.NoError(t, err)
	defer source.Close()

	ctx := context.Background()

	_, err = source.Refresh(ctx)
	require.NoError(t, err)

	_, err = source.Refresh(ctx)
	assert.ErrorIs(t, err, ErrRefreshThrottled)
}

func TestNewSourceInvalidURL(t *testing.T) {
	_, err := NewSource(SourceConfig{URL: "not-a-url"})
	assert.Error(t, err)
}
