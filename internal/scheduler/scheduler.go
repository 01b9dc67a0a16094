// Package scheduler keeps the award cache warm on a cron schedule.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Refresher recomputes cached award lists.
type Refresher interface {
	Refresh(ctx context.Context) error
	RefreshBrands(ctx context.Context) error
}

// Scheduler wraps robfig/cron and runs cache refreshes.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	spec      string // cron spec, e.g. "@every 24h"
	brands    bool
}

// New creates a Scheduler refreshing on spec. With brands set, each
// brand-scoped list is refreshed after the global one.
func New(r Refresher, spec string, brands bool) *Scheduler {
	logger := cronLogger{zap.L().Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		refresher: r,
		spec:      spec,
		brands:    brands,
	}
}

// Start registers the job and starts the scheduler. One refresh also runs
// immediately so the cache is warm without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return eris.Wrapf(err, "scheduler: invalid spec %q", s.spec)
	}
	s.cron.Start()
	zap.L().Info("scheduler: started", zap.String("spec", s.spec), zap.Bool("brands", s.brands))

	go s.RunOnce(ctx)
	return nil
}

// Stop halts the schedule and returns a context that is done once a
// running refresh finishes.
func (s *Scheduler) Stop() context.Context {
	zap.L().Info("scheduler: stopping")
	return s.cron.Stop()
}

// RunOnce refreshes the global list and, if configured, every brand list.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log := zap.L().With(zap.String("spec", s.spec))
	log.Info("scheduler: refresh started")

	if err := s.refresher.Refresh(ctx); err != nil {
		log.Error("scheduler: refresh failed", zap.Error(err))
	}
	if s.brands {
		if err := s.refresher.RefreshBrands(ctx); err != nil {
			log.Error("scheduler: brand refresh failed", zap.Error(err))
		}
	}
	log.Info("scheduler: refresh complete")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
