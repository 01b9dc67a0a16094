package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/awards-cli/internal/award"
	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/scrape"
)

// ImageMapper builds each brand's title to image map from its award index
// page.
type ImageMapper struct {
	fetch       fetcher.Fetcher
	chain       *scrape.Chain
	indexPath   string
	concurrency int
}

// NewImageMapper creates an ImageMapper scraping {brand url}{indexPath}
// with chain.
func NewImageMapper(f fetcher.Fetcher, chain *scrape.Chain, indexPath string, concurrency int) *ImageMapper {
	if chain == nil {
		chain = scrape.DefaultChain()
	}
	return &ImageMapper{fetch: f, chain: chain, indexPath: indexPath, concurrency: max(concurrency, 1)}
}

// Build returns an image map per brand ID. A brand whose index page cannot
// be read gets an empty map.
func (m *ImageMapper) Build(ctx context.Context, brands []model.Brand) map[string]*award.ImageMap {
	log := loggerFrom(ctx)
	maps := make([]*award.ImageMap, len(brands))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, b := range brands {
		g.Go(func() error {
			target := b.URL(m.indexPath)
			doc, err := m.fetch.GetHTML(gCtx, target)
			if err != nil {
				log.Warn("pipeline: award index unavailable",
					zap.String("brand", b.ID),
					zap.String("url", target),
					zap.Error(err),
				)
				maps[i] = award.NewImageMap()
				return nil
			}
			maps[i] = m.chain.ImageMap(doc, b.BaseURL)
			log.Debug("pipeline: image map built",
				zap.String("brand", b.ID),
				zap.Int("images", maps[i].Len()),
			)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*award.ImageMap, len(brands))
	for i, b := range brands {
		if _, dup := out[b.ID]; !dup {
			out[b.ID] = maps[i]
		}
	}
	return out
}
