package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ldinh/marketd/internal/port"
)

// ExpiryScheduler periodically closes markets whose window elapsed.
// This is cooperative polling, not a precise timer: closure lags the
// nominal deadline by up to one interval, and the purchase path closes
// lazily in the meantime.
type ExpiryScheduler struct {
	interval time.Duration
	repo     port.MarketRepository
	markets  *MarketService
	logger   *zap.Logger
	metrics  *Metrics

	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExpiryScheduler(interval time.Duration, repo port.MarketRepository, markets *MarketService, logger *zap.Logger, metrics *Metrics) *ExpiryScheduler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ExpiryScheduler{
		interval: interval,
		repo:     repo,
		markets:  markets,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Start begins the sweep loop.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("expiry_scheduler_started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *ExpiryScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("expiry_scheduler_stopped")
}

func (s *ExpiryScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep closes every open market whose deadline has passed. Each
// closure runs under the same tenant lock as purchases.
func (s *ExpiryScheduler) Sweep(ctx context.Context) {
	s.metrics.SchedulerTicks.Inc()

	open, err := s.repo.ListOpenMarkets(ctx)
	if err != nil {
		s.logger.Error("expiry_sweep_failed", zap.Error(err))
		return
	}

	now := s.now()
	for i := range open {
		if !open[i].Expired(now) {
			continue
		}
		tenant := open[i].Tenant

		lock := s.markets.locks.Get(tenant)
		lock.Lock()
		state, err := s.repo.GetMarket(ctx, tenant)
		if err == nil && state.Expired(s.now()) {
			err = s.markets.closeLocked(ctx, state, "expired")
		}
		lock.Unlock()

		if err != nil {
			s.logger.Error("expiry_close_failed", zap.String("tenant", tenant), zap.Error(err))
		}
	}
}
