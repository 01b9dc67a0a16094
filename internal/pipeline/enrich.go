package pipeline

import (
	"context"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/scrape"
)

// DateEnricher fills each award's nomination window from its detail page.
type DateEnricher struct {
	fetch       fetcher.Fetcher
	concurrency int
}

// NewDateEnricher creates a DateEnricher.
func NewDateEnricher(f fetcher.Fetcher, concurrency int) *DateEnricher {
	return &DateEnricher{fetch: f, concurrency: max(concurrency, 1)}
}

// Enrich sets StartDate and EndDate on every award in place and returns the
// number of awards that got at least one date. Awards whose page cannot be
// fetched keep null dates.
func (e *DateEnricher) Enrich(ctx context.Context, awards []model.Award, brands []model.Brand) int {
	log := loggerFrom(ctx)
	bases := make(map[string]string, len(brands))
	for _, b := range brands {
		bases[b.ID] = b.BaseURL
	}

	var found atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range awards {
		a := &awards[i]
		a.StartDate, a.EndDate = nil, nil
		target := detailURL(a.ViewNode, bases[a.Brand])
		if target == "" {
			continue
		}
		g.Go(func() error {
			doc, err := e.fetch.GetHTML(gCtx, target)
			if err != nil {
				log.Debug("pipeline: award page unavailable",
					zap.String("award", a.ID),
					zap.String("url", target),
					zap.Error(err),
				)
				return nil
			}
			a.StartDate, a.EndDate = scrape.NominationWindow(doc)
			if a.StartDate != nil || a.EndDate != nil {
				found.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(found.Load())
}

// detailURL returns viewNode as an absolute URL, resolving a relative node
// against base. It returns "" when no absolute URL can be formed.
func detailURL(viewNode, base string) string {
	if viewNode == "" {
		return ""
	}
	ref, err := url.Parse(viewNode)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	return scrape.ResolveURL(baseURL, viewNode)
}
