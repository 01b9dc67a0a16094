package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/awards-cli/internal/resilience"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveFetch(kind Kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, string(kind)+":"+outcome)
}

func newTestFetcher(obs Observer) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:    "test-agent",
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		RatePerHost:  1000,
		BurstPerHost: 100,
		Breaker:      resilience.BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour},
		Observer:     obs,
	})
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "application/json")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"A"}]`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	f := newTestFetcher(obs)

	var out []map[string]string
	require.NoError(t, f.GetJSON(context.Background(), srv.URL+"/awards.json", &out))
	assert.Equal(t, []map[string]string{{"title": "A"}}, out)
	assert.Equal(t, []string{"json:ok"}, obs.outcomes)
}

func TestGetJSON_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	var out []any
	err := newTestFetcher(nil).GetJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}

func TestGetHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		_, _ = w.Write([]byte(`<html><body><h1 class="t">Awards</h1></body></html>`))
	}))
	defer srv.Close()

	doc, err := newTestFetcher(nil).GetHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Awards", doc.Find("h1.t").Text())
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher(nil).Get(context.Background(), srv.URL, KindHTML)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGet_NoRetryOnNotFound(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := newTestFetcher(obs).Get(context.Background(), srv.URL, KindHTML)

	var se *resilience.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, []string{"html:status"}, obs.outcomes)
}

func TestGet_InvalidURL(t *testing.T) {
	f := newTestFetcher(nil)
	for _, u := range []string{"", "/relative/path", "ftp://x.com/file", "::bad"} {
		_, err := f.Get(context.Background(), u, KindJSON)
		require.Error(t, err, u)
		assert.Contains(t, err.Error(), "invalid url")
	}
}

func TestGet_CloudflareBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := newTestFetcher(nil).Get(context.Background(), srv.URL, KindHTML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))
}

func TestGet_CircuitOpensForFailingHost(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	f := newTestFetcher(obs)
	for range 3 {
		_, err := f.Get(context.Background(), srv.URL+"/page", KindHTML)
		require.Error(t, err)
	}
	before := attempts.Load()

	_, err := f.Get(context.Background(), srv.URL+"/other", KindHTML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, before, attempts.Load(), "open circuit must not reach the host")
	assert.Equal(t, "html:circuit_open", obs.outcomes[len(obs.outcomes)-1])
}

func TestGet_NotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	for range 5 {
		_, err := f.Get(context.Background(), srv.URL+"/missing", KindHTML)
		require.Error(t, err)
	}
	_, err := f.Get(context.Background(), srv.URL+"/present", KindHTML)
	assert.NoError(t, err)
}

func TestGet_HalfOpenNotFoundClosesCircuit(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case failing.Load():
			w.WriteHeader(http.StatusServiceUnavailable)
		case strings.HasSuffix(r.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:    "test-agent",
		Timeout:      2 * time.Second,
		RatePerHost:  1000,
		BurstPerHost: 100,
		Breaker:      resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: 50 * time.Millisecond},
	})
	for range 2 {
		_, err := f.Get(context.Background(), srv.URL+"/page", KindHTML)
		require.Error(t, err)
	}
	_, err := f.Get(context.Background(), srv.URL+"/page", KindHTML)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)

	failing.Store(false)
	time.Sleep(80 * time.Millisecond)

	_, err = f.Get(context.Background(), srv.URL+"/missing", KindHTML)
	require.Error(t, err)
	assert.False(t, errors.Is(err, resilience.ErrCircuitOpen))

	for range 3 {
		body, err := f.Get(context.Background(), srv.URL+"/ok", KindHTML)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	}
}

func TestGet_HalfOpenCancelledCallReleasesCircuit(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:    "test-agent",
		Timeout:      2 * time.Second,
		RatePerHost:  1000,
		BurstPerHost: 100,
		Breaker:      resilience.BreakerConfig{FailureThreshold: 1, ResetTimeout: 50 * time.Millisecond},
	})
	_, err := f.Get(context.Background(), srv.URL+"/page", KindHTML)
	require.Error(t, err)

	failing.Store(false)
	time.Sleep(80 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Get(ctx, srv.URL+"/page", KindHTML)
	require.Error(t, err)

	_, err = f.Get(context.Background(), srv.URL+"/page", KindHTML)
	assert.NoError(t, err)
}

func TestGet_TimeoutIsEnforced(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(HTTPOptions{UserAgent: "t", Timeout: 50 * time.Millisecond, RatePerHost: 100, BurstPerHost: 10})
	start := time.Now()
	_, err := f.Get(context.Background(), srv.URL, KindHTML)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGet_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 5000)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{UserAgent: "t", MaxBodyBytes: 100, RatePerHost: 100, BurstPerHost: 10})
	body, err := f.Get(context.Background(), srv.URL, KindHTML)
	require.NoError(t, err)
	assert.Len(t, body, 100)
}

func TestAdaptiveLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(rate.Limit(8), 1)

	lim.OnRateLimit()
	assert.InDelta(t, 4.0, float64(lim.Limit()), 0.001)
	lim.OnRateLimit()
	lim.OnRateLimit()
	assert.InDelta(t, 2.0, float64(lim.Limit()), 0.001, "floored at a quarter of initial")

	lim.OnSuccess()
	assert.InDelta(t, 2.4, float64(lim.Limit()), 0.001)
	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 8.0, float64(lim.Limit()), 0.001, "capped at initial")
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "ok", outcomeOf(nil))
	assert.Equal(t, "status", outcomeOf(&resilience.StatusError{StatusCode: 500}))
	assert.Equal(t, "blocked", outcomeOf(ErrBlocked))
	assert.Equal(t, "timeout", outcomeOf(context.DeadlineExceeded))
	assert.Equal(t, "error", outcomeOf(errors.New("decode")))
}
