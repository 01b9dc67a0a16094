package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/config"
)

// testSite serves one brand's award listing and index page.
type testSite struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	s := &testSite{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		switch r.URL.Path {
		case "/node/content-menu/awards.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(strings.ReplaceAll(`[
				{"title":"Past Gala","field_date":"2020-06-01T18:00:00Z","view_node":"{base}/awards/past"},
				{"title":"Future Gala","field_date":"2099-06-01T18:00:00Z","view_node":"{base}/awards/future"}
			]`, "{base}", s.srv.URL)))
		case "/awards":
			_, _ = w.Write([]byte(`<div class="elementor-widget-image"><a title="Future Gala"><img src="/img/future.png"></a></div>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func writeDocs(t *testing.T, siteURL string) string {
	t.Helper()
	content := `
dashboard-config:
  brand-all-properties:
    x:
      name: Example Business Journal
      url: ` + siteURL + `/
      awards: true
    y:
      url: https://y.example.com
      awards: false
  tickers:
    speed: 40
    items: [a, b]
`
	path := filepath.Join(t.TempDir(), "documents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// useTestConfig installs a complete config pointing at docsPath.
func useTestConfig(t *testing.T, docsPath string) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Server.Port = 8080
	c.Server.CORSOrigins = []string{"*"}
	c.Store.Driver = "file"
	c.Store.Path = docsPath
	c.Store.CacheTTLHours = 24
	c.Brands.Collection = "dashboard-config"
	c.Brands.Document = "brand-all-properties"
	c.Fetch.UserAgent = "test-agent"
	c.Fetch.TimeoutSecs = 2
	c.Fetch.MaxRetries = 0
	c.Fetch.RatePerHost = 1000
	c.Fetch.BurstPerHost = 100
	c.Fetch.MaxConcurrency = 4
	c.Fetch.MaxBodyKB = 1024
	c.Fetch.BreakerThreshold = 100
	c.Fetch.BreakerResetSecs = 60
	c.Awards.ListingPath = "/node/content-menu/awards.json"
	c.Awards.IndexPath = "/awards"
	c.Awards.FallbackBrand = "x"
	c.Awards.IDStrategy = "view_node"
	c.Awards.Matcher = "substring"
	c.Awards.TokenThreshold = 0.6
	c.Cache.TTLHours = 168
	c.Cache.Backend = "memory"
	c.Cache.KeyPrefix = "awards:"
	c.Metrics.Enabled = true
	c.Monitoring.FailureRateThreshold = 0.5

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}
