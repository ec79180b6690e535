package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ldinh/marketd/internal/core/domain"
	"github.com/ldinh/marketd/internal/port"
)

// MarketService owns the open/closed state machine of every tenant's
// sale window and the read-only inventory listing.
type MarketService struct {
	repo    port.MarketRepository
	catalog domain.Catalog
	gen     *Generator
	locks   *TenantLocks
	cache   port.SnapshotCache
	auth    port.Authorizer
	logger  *zap.Logger
	metrics *Metrics

	listingTTL      time.Duration
	maxOpenDuration time.Duration

	now func() time.Time
}

// NewMarketService wires the lifecycle controller. cache may be nil
// (listings then always read from the repository); auth may be nil,
// which allows every caller and is meant for tests only.
func NewMarketService(
	repo port.MarketRepository,
	catalog domain.Catalog,
	gen *Generator,
	locks *TenantLocks,
	cache port.SnapshotCache,
	auth port.Authorizer,
	logger *zap.Logger,
	metrics *Metrics,
	listingTTL time.Duration,
	maxOpenDuration time.Duration,
) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if listingTTL <= 0 {
		listingTTL = 2 * time.Second
	}
	if maxOpenDuration <= 0 {
		maxOpenDuration = 24 * time.Hour
	}
	return &MarketService{
		repo:            repo,
		catalog:         catalog,
		gen:             gen,
		locks:           locks,
		cache:           cache,
		auth:            auth,
		logger:          logger,
		metrics:         metrics,
		listingTTL:      listingTTL,
		maxOpenDuration: maxOpenDuration,
		now:             time.Now,
	}
}

// Open starts a new sale window for the tenant. The generation strictly
// increases on every call. Opening while a window is already open is
// permitted and supersedes it immediately: the old generation's items
// stop being purchasable and any in-flight purchase against them fails
// its item lookup. Supersession is logged as an explicit event.
func (s *MarketService) Open(ctx context.Context, tenant, callerID string, duration time.Duration) (*domain.MarketState, error) {
	if err := s.authorize(ctx, tenant, callerID); err != nil {
		return nil, err
	}
	if duration <= 0 || duration > s.maxOpenDuration {
		return nil, fmt.Errorf("market: invalid window duration %s", duration)
	}

	lock := s.locks.Get(tenant)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.repo.GetMarket(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load market: %w", err)
	}

	if state.IsOpen {
		s.logger.Info("market_superseded",
			zap.String("tenant", tenant),
			zap.Int64("old_generation", state.Generation),
			zap.Time("old_closes_at", state.ClosesAt),
			zap.String("caller_id", callerID),
		)
	}

	now := s.now()
	state.Generation++
	state.IsOpen = true
	state.ClosesAt = now.Add(duration)
	state.UpdatedAt = now

	items := s.gen.Generate(tenant, state.Generation, s.catalog)

	// Inventory must be durable before the window is advertised so every
	// purchase reads a stable snapshot for this generation.
	if err := s.repo.ReplaceInventory(ctx, tenant, state.Generation, items); err != nil {
		return nil, fmt.Errorf("persist inventory: %w", err)
	}
	if err := s.repo.SaveMarket(ctx, state); err != nil {
		return nil, fmt.Errorf("persist market: %w", err)
	}

	s.invalidateListing(ctx, tenant)
	s.metrics.MarketOpens.Inc()
	s.logger.Info("market_opened",
		zap.String("tenant", tenant),
		zap.Int64("generation", state.Generation),
		zap.Time("closes_at", state.ClosesAt),
		zap.Int("items", len(items)),
		zap.String("caller_id", callerID),
	)

	return state.Clone(), nil
}

// Close ends the tenant's window. Closing an already-closed market is a
// no-op.
func (s *MarketService) Close(ctx context.Context, tenant, callerID, reason string) error {
	if err := s.authorize(ctx, tenant, callerID); err != nil {
		return err
	}

	lock := s.locks.Get(tenant)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.repo.GetMarket(ctx, tenant)
	if err != nil {
		return fmt.Errorf("load market: %w", err)
	}
	return s.closeLocked(ctx, state, reason)
}

// closeLocked transitions an open market to closed. The caller must
// hold the tenant lock.
func (s *MarketService) closeLocked(ctx context.Context, state *domain.MarketState, reason string) error {
	if !state.IsOpen {
		return nil
	}

	state.IsOpen = false
	state.ClosesAt = time.Time{}
	state.UpdatedAt = s.now()

	if err := s.repo.SaveMarket(ctx, state); err != nil {
		return fmt.Errorf("persist market: %w", err)
	}

	s.invalidateListing(ctx, state.Tenant)
	s.metrics.MarketCloses.WithLabelValues(reason).Inc()
	s.logger.Info("market_closed",
		zap.String("tenant", state.Tenant),
		zap.Int64("generation", state.Generation),
		zap.String("reason", reason),
	)
	return nil
}

// Snapshot is a pure read of the tenant's market state.
func (s *MarketService) Snapshot(ctx context.Context, tenant string) (*domain.MarketState, error) {
	state, err := s.repo.GetMarket(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load market: %w", err)
	}
	return state.Clone(), nil
}

// ListInventory returns the current generation's in-stock items ordered
// by category, then price descending. It deliberately bypasses the
// tenant lock: the view may be stale by the time a purchase is
// attempted, and the purchase path re-validates everything.
func (s *MarketService) ListInventory(ctx context.Context, tenant string) ([]domain.ItemView, error) {
	if s.cache != nil {
		views, ok, err := s.cache.GetListing(ctx, tenant)
		if err != nil {
			s.logger.Warn("listing_cache_read_failed", zap.String("tenant", tenant), zap.Error(err))
		} else if ok {
			return views, nil
		}
	}

	state, err := s.repo.GetMarket(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load market: %w", err)
	}
	if !state.IsOpen {
		return []domain.ItemView{}, nil
	}

	items, err := s.repo.ListItems(ctx, tenant, state.Generation)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}

	views := make([]domain.ItemView, 0, len(items))
	for i := range items {
		if items[i].Stock > 0 {
			views = append(views, items[i].View())
		}
	}
	domain.SortItemViews(views)

	if s.cache != nil {
		if err := s.cache.PutListing(ctx, tenant, views, s.listingTTL); err != nil {
			s.logger.Warn("listing_cache_write_failed", zap.String("tenant", tenant), zap.Error(err))
		}
	}
	return views, nil
}

func (s *MarketService) authorize(ctx context.Context, tenant, callerID string) error {
	if s.auth == nil {
		return nil
	}
	ok, err := s.auth.CanManage(ctx, tenant, callerID)
	if err != nil {
		return fmt.Errorf("authorization check: %w", err)
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *MarketService) invalidateListing(ctx context.Context, tenant string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListing(ctx, tenant); err != nil {
		s.logger.Warn("listing_cache_invalidate_failed", zap.String("tenant", tenant), zap.Error(err))
	}
}
