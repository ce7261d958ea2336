package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/civicsignal/civicsync/internal/resilience"
)

func testFetcher(server *httptest.Server, maxAttempts int) *HTTPFetcher {
	u, _ := url.Parse(server.URL)
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: "civicsync-test/1.0",
		Timeout:   5 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    maxAttempts,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2.0,
		},
		RateLimiters: map[string]*rate.Limiter{
			u.Host: rate.NewLimiter(rate.Inf, 1),
		},
	})
}

func TestGetSuccess(t *testing.T) {
	var gotUA, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotKey = r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	f := testFetcher(server, 3)
	headers := http.Header{}
	headers.Set("X-Api-Key", "secret")

	body, err := f.Get(context.Background(), server.URL, headers)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "civicsync-test/1.0", gotUA)
	assert.Equal(t, "secret", gotKey)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := testFetcher(server, 3)
	body, err := f.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer body.Close()

	assert.Equal(t, int32(3), calls.Load())
}

func TestGetExhaustsRetriesOnPersistent503(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := testFetcher(server, 3)
	_, err := f.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryPermanent4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := testFetcher(server, 5)
	_, err := f.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bill":{"number":"1234","type":"HR"}}`))
	}))
	defer server.Close()

	f := testFetcher(server, 3)
	var out struct {
		Bill struct {
			Number string `json:"number"`
			Type   string `json:"type"`
		} `json:"bill"`
	}
	require.NoError(t, f.GetJSON(context.Background(), server.URL, nil, &out))
	assert.Equal(t, "1234", out.Bill.Number)
	assert.Equal(t, "HR", out.Bill.Type)
}

func TestGetJSONMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bill": truncated`))
	}))
	defer server.Close()

	f := testFetcher(server, 3)
	var out map[string]any
	err := f.GetJSON(context.Background(), server.URL, nil, &out)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestGetIfModified(t *testing.T) {
	const currentETag = `"v2"`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == currentETag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", currentETag)
		_, _ = w.Write([]byte("agenda"))
	}))
	defer server.Close()

	f := testFetcher(server, 3)

	body, etag, changed, err := f.GetIfModified(context.Background(), server.URL, "")
	require.NoError(t, err)
	require.True(t, changed)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "agenda", string(data))
	assert.Equal(t, currentETag, etag)

	body, etag, changed, err = f.GetIfModified(context.Background(), server.URL, currentETag)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, body)
	assert.Equal(t, currentETag, etag)
}

func TestAdaptiveLimiterAdjustsRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 0.01)

	for i := 0; i < 10; i++ {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.01)

	lim.OnRateLimit()
	assert.InDelta(t, 10.0, float64(lim.Limit()), 0.01)

	for i := 0; i < 10; i++ {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.01)
}

func TestLimiterForUnknownHostIsConservative(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	lim := f.limiterFor("https://unknown.example.gov/agenda")
	assert.Equal(t, rate.Limit(1), lim.Limit())
}
