package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/cache"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/registry"
)

// ErrBrandNotFound is returned for brands that are unknown or have awards
// disabled.
var ErrBrandNotFound = registry.ErrBrandNotFound

// AllKey is the cache key of the all-brands award list.
const AllKey = "all"

// BrandKey returns the cache key of a brand-scoped award list.
func BrandKey(id string) string { return "brand:" + id }

// BrandSource lists the brands taking part in award aggregation.
type BrandSource interface {
	AwardBrands(ctx context.Context) ([]model.Brand, error)
	Brand(ctx context.Context, id string) (model.Brand, error)
}

// RunObserver is told about every pipeline run, including failed ones.
type RunObserver interface {
	ObserveRun(ctx context.Context, s model.RunSummary)
}

// Service is the cached entry point to the award pipeline. Callers always
// get a list: on failure the last cached list if one exists and no bypass
// was asked for, otherwise an empty one.
type Service struct {
	brands    BrandSource
	pipeline  *Pipeline
	cache     *cache.Cache[[]model.Award]
	observers []RunObserver
}

// NewService creates a Service.
func NewService(brands BrandSource, p *Pipeline, c *cache.Cache[[]model.Award], observers ...RunObserver) *Service {
	return &Service{brands: brands, pipeline: p, cache: c, observers: observers}
}

// AggregateAwards returns the award list across all award brands.
func (s *Service) AggregateAwards(ctx context.Context, bypass bool) (awards []model.Award) {
	defer s.recoverTo(ctx, AllKey, bypass, &awards)

	awards, err := s.cache.GetOrLoad(ctx, AllKey, bypass, func(ctx context.Context) ([]model.Award, error) {
		return s.run(ctx, AllKey, s.allBrands)
	})
	if err != nil {
		return s.fallback(ctx, AllKey, bypass, err)
	}
	return nonNil(awards)
}

// AggregateAwardsForBrand returns the award list of a single brand. It
// fails only with ErrBrandNotFound; other failures fall back like
// AggregateAwards.
func (s *Service) AggregateAwardsForBrand(ctx context.Context, id string, bypass bool) (awards []model.Award, err error) {
	key := BrandKey(id)
	defer s.recoverTo(ctx, key, bypass, &awards)

	awards, err = s.cache.GetOrLoad(ctx, key, bypass, func(ctx context.Context) ([]model.Award, error) {
		return s.run(ctx, key, func(ctx context.Context) ([]model.Brand, error) {
			b, err := s.brands.Brand(ctx, id)
			if err != nil {
				return nil, err
			}
			return []model.Brand{b}, nil
		})
	})
	if errors.Is(err, ErrBrandNotFound) {
		return nil, err
	}
	if err != nil {
		return s.fallback(ctx, key, bypass, err), nil
	}
	return nonNil(awards), nil
}

// Refresh recomputes the all-brands list, replacing the cache entry on
// success.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.cache.GetOrLoad(ctx, AllKey, true, func(ctx context.Context) ([]model.Award, error) {
		return s.run(ctx, AllKey, s.allBrands)
	})
	return err
}

// RefreshBrands recomputes every brand-scoped list. It returns the first
// error after trying all brands.
func (s *Service) RefreshBrands(ctx context.Context) error {
	brands, err := s.allBrands(ctx)
	if err != nil {
		return err
	}
	var first error
	for _, b := range brands {
		if _, err := s.AggregateAwardsForBrand(ctx, b.ID, true); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Service) allBrands(ctx context.Context) ([]model.Brand, error) {
	brands, err := s.brands.AwardBrands(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load award brands")
	}
	return brands, nil
}

// run executes one pipeline run and reports it. A panic inside the run is
// returned as an error so the cache keeps its previous entry.
func (s *Service) run(ctx context.Context, scope string, load func(context.Context) ([]model.Brand, error)) (awards []model.Award, err error) {
	summary := model.RunSummary{Scope: scope}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: panic in run: %v", r)
		}
		if errors.Is(err, ErrBrandNotFound) {
			return
		}
		if err != nil {
			summary.Err = err.Error()
		}
		s.notify(ctx, summary)
	}()

	brands, err := load(ctx)
	if err != nil {
		return nil, err
	}
	awards, summary, err = s.pipeline.Run(ctx, scope, brands)
	if err != nil {
		return nil, err
	}
	return nonNil(awards), nil
}

func (s *Service) notify(ctx context.Context, summary model.RunSummary) {
	for _, o := range s.observers {
		o.ObserveRun(ctx, summary)
	}
}

// fallback serves the stale entry for key unless bypass was asked for.
func (s *Service) fallback(ctx context.Context, key string, bypass bool, err error) []model.Award {
	log := zap.L().With(zap.String("key", key), zap.Bool("bypass", bypass))
	if !bypass {
		if e, ok := s.cache.Peek(ctx, key); ok {
			log.Warn("pipeline: run failed, serving cached awards",
				zap.Time("fetched_at", e.FetchedAt),
				zap.Error(err),
			)
			return nonNil(e.Payload)
		}
	}
	log.Error("pipeline: run failed, serving empty list", zap.Error(err))
	return []model.Award{}
}

// recoverTo converts a panic escaping the cache layer into the fallback
// result.
func (s *Service) recoverTo(ctx context.Context, key string, bypass bool, out *[]model.Award) {
	if r := recover(); r != nil {
		*out = s.fallback(ctx, key, bypass, eris.Errorf("pipeline: panic: %v", r))
	}
}

func nonNil(awards []model.Award) []model.Award {
	if awards == nil {
		return []model.Award{}
	}
	return awards
}
