package pipeline

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
)

// Collector fetches each brand's award listing feed.
type Collector struct {
	fetch       fetcher.Fetcher
	listingPath string
	concurrency int
}

// NewCollector creates a Collector reading {brand url}{listingPath}.
func NewCollector(f fetcher.Fetcher, listingPath string, concurrency int) *Collector {
	return &Collector{fetch: f, listingPath: listingPath, concurrency: max(concurrency, 1)}
}

// Collection is the flattened result of one collection phase.
type Collection struct {
	Records []model.RawAward
	Failed  int
}

// Collect fetches every brand concurrently and flattens the records in
// brand order, whatever order the fetches finish in. A brand whose feed
// cannot be read contributes nothing.
func (c *Collector) Collect(ctx context.Context, brands []model.Brand) Collection {
	log := loggerFrom(ctx)
	perBrand := make([][]model.RawAward, len(brands))
	failed := make([]bool, len(brands))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, b := range brands {
		g.Go(func() error {
			records, err := c.listing(gCtx, b)
			if err != nil {
				failed[i] = true
				log.Warn("pipeline: award listing unavailable",
					zap.String("brand", b.ID),
					zap.String("url", b.URL(c.listingPath)),
					zap.Error(err),
				)
				return nil
			}
			perBrand[i] = records
			log.Debug("pipeline: award listing fetched",
				zap.String("brand", b.ID),
				zap.Int("records", len(records)),
			)
			return nil
		})
	}
	_ = g.Wait()

	var out Collection
	for i := range brands {
		out.Records = append(out.Records, perBrand[i]...)
		if failed[i] {
			out.Failed++
		}
	}
	return out
}

func (c *Collector) listing(ctx context.Context, b model.Brand) ([]model.RawAward, error) {
	var items []json.RawMessage
	if err := c.fetch.GetJSON(ctx, b.URL(c.listingPath), &items); err != nil {
		return nil, err
	}
	return DecodeListing(items), nil
}

// DecodeListing decodes the object elements of a listing feed. Elements
// that are not objects are skipped.
func DecodeListing(items []json.RawMessage) []model.RawAward {
	records := make([]model.RawAward, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var r model.RawAward
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records
}
