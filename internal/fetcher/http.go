package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/awards-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RatePerHost  rate.Limit
	BurstPerHost int
	MaxBodyBytes int64
	Breaker      resilience.BreakerConfig
	Observer     Observer
}

// AdaptiveLimiter wraps a rate.Limiter that backs off when a host answers
// 429 and recovers gradually on success, never exceeding its initial rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%, up to the initial rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.initialRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate, down to a quarter of the initial rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with a per-request timeout,
// per-host rate limiting, retries on transient failures and per-host circuit
// breakers.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	retry    resilience.RetryConfig
	breakers *resilience.HostBreakers

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 5
	}
	if opts.BurstPerHost <= 0 {
		opts.BurstPerHost = 5
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxRetries + 1
	retry.InitialBackoff = opts.RetryBackoff

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		opts:     opts,
		retry:    retry,
		breakers: resilience.NewHostBreakers(opts.Breaker),
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(f.opts.RatePerHost, f.opts.BurstPerHost)
		f.limiters[host] = lim
	}
	return lim
}

// GetJSON fetches url and decodes the JSON body into v.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := f.Get(ctx, rawURL, KindJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "fetch: decode json from %s", rawURL)
	}
	return nil
}

// GetHTML fetches url and parses it into a goquery document.
func (f *HTTPFetcher) GetHTML(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := f.Get(ctx, rawURL, KindHTML)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse html from %s", rawURL)
	}
	return doc, nil
}

// Get fetches url and returns its body. Non-2xx statuses, challenge pages
// and open circuits are errors.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, kind Kind) ([]byte, error) {
	start := time.Now()

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		f.observe(kind, "invalid_url", start)
		return nil, eris.Errorf("fetch: invalid url %q", rawURL)
	}

	if err := f.breakers.Allow(u.Host); err != nil {
		f.observe(kind, "circuit_open", start)
		return nil, err
	}

	body, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		return f.do(ctx, u, kind)
	})

	// Only host-level trouble counts toward the breaker. A non-transient
	// status such as a missing detail page still proves the host answered.
	var statusErr *resilience.StatusError
	switch {
	case err == nil || resilience.IsTransient(err) || errors.Is(err, ErrBlocked):
		f.breakers.Record(u.Host, err)
	case errors.As(err, &statusErr):
		f.breakers.Record(u.Host, nil)
	default:
		f.breakers.Release(u.Host)
	}

	outcome := outcomeOf(err)
	f.observe(kind, outcome, start)
	if err != nil {
		zap.L().Debug("fetch failed",
			zap.String("url", rawURL),
			zap.String("kind", string(kind)),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, err
	}
	zap.L().Debug("fetch ok",
		zap.String("url", rawURL),
		zap.String("kind", string(kind)),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

func (f *HTTPFetcher) do(ctx context.Context, u *url.URL, kind Kind) ([]byte, error) {
	lim := f.limiterFor(u.Host)
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	switch kind {
	case KindJSON:
		req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")
	default:
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9, */*;q=0.8")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", u.String())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: read body from %s", u.String())
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
		zap.L().Warn("rate limited (429), backing off",
			zap.String("host", u.Host),
			zap.Float64("new_rate", float64(lim.Limit())),
		)
	}

	if block := DetectBlock(resp, body); block != BlockNone {
		return nil, eris.Wrapf(ErrBlocked, "fetch: %s (%s)", u.String(), block)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &resilience.StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	lim.OnSuccess()
	return body, nil
}

func (f *HTTPFetcher) observe(kind Kind, outcome string, start time.Time) {
	if f.opts.Observer != nil {
		f.opts.Observer.ObserveFetch(kind, outcome, time.Since(start))
	}
}

func outcomeOf(err error) string {
	var se *resilience.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case resilience.IsTransient(err):
		return "network"
	default:
		return "error"
	}
}
