// Package pipeline runs the award aggregation phases (collect, tag, dedup,
// enrich dates, build image maps, attach images, sort) and fronts them with
// a response cache.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/awards-cli/internal/award"
	"github.com/sells-group/awards-cli/internal/config"
	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/scrape"
)

// Options configures a Pipeline.
type Options struct {
	ListingPath           string
	IndexPath             string
	Concurrency           int
	Tag                   award.TagOptions
	Matcher               award.TitleMatcher
	UpstreamImageFallback bool
	Chain                 *scrape.Chain
}

// OptionsFromConfig maps the awards and fetch sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ListingPath: cfg.Awards.ListingPath,
		IndexPath:   cfg.Awards.IndexPath,
		Concurrency: cfg.Fetch.MaxConcurrency,
		Tag: award.TagOptions{
			FallbackBrand: cfg.Awards.FallbackBrand,
			IDStrategy:    award.IDStrategy(cfg.Awards.IDStrategy),
		},
		Matcher:               award.NewMatcher(cfg.Awards.Matcher, cfg.Awards.TokenThreshold),
		UpstreamImageFallback: cfg.Awards.UpstreamImageFallback,
	}
}

// Pipeline computes the award list for a set of brands.
type Pipeline struct {
	opts      Options
	collector *Collector
	dates     *DateEnricher
	images    *ImageMapper
}

// New creates a Pipeline fetching through f.
func New(f fetcher.Fetcher, opts Options) *Pipeline {
	if opts.Matcher == nil {
		opts.Matcher = award.SubstringMatcher{}
	}
	if opts.Tag.IDStrategy == "" {
		opts.Tag.IDStrategy = award.IDByIndex
	}
	return &Pipeline{
		opts:      opts,
		collector: NewCollector(f, opts.ListingPath, opts.Concurrency),
		dates:     NewDateEnricher(f, opts.Concurrency),
		images:    NewImageMapper(f, opts.Chain, opts.IndexPath, opts.Concurrency),
	}
}

// Run aggregates the awards of brands. Per-brand and per-award failures
// degrade to empty results, so the only error is ctx ending. The summary
// is filled in either way.
func (p *Pipeline) Run(ctx context.Context, scope string, brands []model.Brand) ([]model.Award, model.RunSummary, error) {
	start := time.Now()
	summary := model.RunSummary{
		RunID:  uuid.NewString(),
		Scope:  scope,
		Brands: len(brands),
	}
	log := zap.L().With(zap.String("run_id", summary.RunID), zap.String("scope", scope))
	ctx = withLogger(ctx, log)
	log.Info("pipeline: run starting", zap.Strings("brands", model.BrandIDs(brands)))

	collected := p.collector.Collect(ctx, brands)
	summary.RawRecords = len(collected.Records)
	summary.BrandsFailed = collected.Failed

	tagged := award.Tag(collected.Records, brands, p.opts.Tag)
	awards, stats := award.Dedup(tagged)
	summary.MissingField = stats.MissingField
	summary.Duplicates = stats.Duplicate

	var maps map[string]*award.ImageMap
	var g errgroup.Group
	g.Go(func() error {
		summary.DatesFound = p.dates.Enrich(ctx, awards, brands)
		return nil
	})
	g.Go(func() error {
		maps = p.images.Build(ctx, brands)
		return nil
	})
	_ = g.Wait()

	for _, m := range maps {
		if m.Len() > 0 {
			summary.ImageMaps++
		}
	}
	summary.ImagesMatched = award.AttachImages(awards, maps, p.opts.Matcher, p.opts.UpstreamImageFallback)
	award.SortByFieldDate(awards)

	summary.Awards = len(awards)
	summary.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		summary.Err = err.Error()
		log.Warn("pipeline: run cancelled", zap.Error(err))
		return nil, summary, err
	}

	log.Info("pipeline: run complete",
		zap.Int("raw_records", summary.RawRecords),
		zap.Int("awards", summary.Awards),
		zap.Int("missing_field", summary.MissingField),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("brands_failed", summary.BrandsFailed),
		zap.Int("dates_found", summary.DatesFound),
		zap.Int("images_matched", summary.ImagesMatched),
		zap.Duration("duration", summary.Duration),
	)
	return awards, summary, nil
}

type loggerKey struct{}

func withLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.L()
}
