package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/awards-cli/internal/award"
	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

const (
	testListingPath = "/node/content-menu/awards.json"
	testIndexPath   = "/awards"
)

// brandSite is a fake brand website. Bodies may use {base} for the site's
// own URL.
type brandSite struct {
	srv   *httptest.Server
	hits  atomic.Int32
	delay time.Duration
	pages map[string]string
	codes map[string]int
}

func newBrandSite(t *testing.T, pages map[string]string) *brandSite {
	t.Helper()
	s := &brandSite{pages: pages, codes: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		if code, ok := s.codes[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := s.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".json") {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(body, "{base}", s.srv.URL)))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *brandSite) brand(id string) model.Brand {
	return model.Brand{ID: id, DisplayName: strings.ToUpper(id), BaseURL: s.srv.URL + "/"}
}

func newTestFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    "test-agent",
		Timeout:      2 * time.Second,
		MaxRetries:   0,
		RetryBackoff: time.Millisecond,
		RatePerHost:  1000,
		BurstPerHost: 100,
		Breaker:      resilience.BreakerConfig{FailureThreshold: 100, ResetTimeout: time.Minute},
	})
}

func newTestPipeline(fallback string) *Pipeline {
	return New(newTestFetcher(), Options{
		ListingPath: testListingPath,
		IndexPath:   testIndexPath,
		Concurrency: 4,
		Tag:         award.TagOptions{FallbackBrand: fallback, IDStrategy: award.IDByIndex},
		Matcher:     award.SubstringMatcher{},
	})
}

type mockBrands struct {
	mock.Mock
}

func (m *mockBrands) AwardBrands(ctx context.Context) ([]model.Brand, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Brand), args.Error(1)
}

func (m *mockBrands) Brand(ctx context.Context, id string) (model.Brand, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Brand), args.Error(1)
}

type recordingObserver struct {
	runs []model.RunSummary
}

func (r *recordingObserver) ObserveRun(_ context.Context, s model.RunSummary) {
	r.runs = append(r.runs, s)
}

// siteX lists a bank award (absolute node), a relative node, and two
// invalid records.
func siteX(t *testing.T) *brandSite {
	return newBrandSite(t, map[string]string{
		testListingPath: `[
			{"title":"Best Bank &amp; Trust","field_date":"2025-03-01T09:00:00Z","view_node":"{base}/awards/best-bank"},
			{"title":"Forty Under 40","field_date":"2025-01-15","view_node":"/awards/forty"},
			{"title":"","field_date":"2025-02-01"},
			"junk",
			{"title":"No Date","view_node":"{base}/awards/nodate"}
		]`,
		testIndexPath: `<html><body>
			<div class="view-content">
			  <div class="item with-border-bottom">
			    <img src="/files/bank.jpg">
			    <h3 class="item__title"><a href="/awards/best-bank">Best Bank &amp; Trust Awards</a></h3>
			  </div>
			</div>
			<div class="elementor-widget-image">
			  <a href="/awards/forty" title="Forty Under 40"><img data-src="/files/forty.png"></a>
			</div>
		</body></html>`,
		"/awards/best-bank": `<html><body><div class="nomination-date">
			<span class="start-date" date="2025-01-01T00:00:00Z"></span>
			<span class="end-date" date="2025-02-01"></span>
		</div></body></html>`,
		"/awards/forty": `<html><body><p>No window yet</p></body></html>`,
	})
}

// siteY repeats the bank award on another day-time and adds its own award.
func siteY(t *testing.T) *brandSite {
	return newBrandSite(t, map[string]string{
		testListingPath: `[
			{"title":"best  bank and trust","field_date":"2025-03-01T23:00:00Z","view_node":"{base}/a/b"},
			{"title":"CFO of the Year","field_date":"2024-12-01T10:00:00Z","view_node":"{base}/awards/cfo"}
		]`,
		testIndexPath: `<html><body>
			<div class="elementor-image-box-wrapper">
			  <figure class="elementor-image-box-img"><img src="uploads/cfo.jpg"></figure>
			  <h3 class="elementor-image-box-title">CFO of the Year</h3>
			</div>
		</body></html>`,
	})
}
