package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ldinh/marketd/internal/core/domain"
	"github.com/ldinh/marketd/internal/port"
)

const (
	outcomeCommitted         = "committed"
	outcomeNotOpen           = "not_open"
	outcomeExpired           = "expired"
	outcomeItemNotFound      = "item_not_found"
	outcomeSoldOut           = "sold_out"
	outcomeLimitReached      = "limit_reached"
	outcomeInsufficientFunds = "insufficient_funds"
	outcomeDuplicate         = "duplicate"
	outcomeError             = "error"
)

// PurchaseRequest is one buyer's attempt against the current window.
type PurchaseRequest struct {
	RequestID string
	Tenant    string
	BuyerID   string
	ItemID    string
	Qty       int
}

// PurchaseService executes purchase attempts. Validation and commit run
// end to end under the tenant lock; the entitlement grant runs after
// the lock is released since it calls out of process.
type PurchaseService struct {
	repo    port.MarketRepository
	wallets port.WalletRepository
	markets *MarketService
	cache   port.SnapshotCache
	granter port.EntitlementGranter
	logger  *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer

	defaultBalance int64

	now func() time.Time
}

// NewPurchaseService wires the transaction processor. cache and granter
// may be nil; both degrade to doing nothing.
func NewPurchaseService(
	repo port.MarketRepository,
	wallets port.WalletRepository,
	markets *MarketService,
	cache port.SnapshotCache,
	granter port.EntitlementGranter,
	logger *zap.Logger,
	metrics *Metrics,
	defaultBalance int64,
) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &PurchaseService{
		repo:           repo,
		wallets:        wallets,
		markets:        markets,
		cache:          cache,
		granter:        granter,
		logger:         logger,
		metrics:        metrics,
		tracer:         otel.Tracer("marketd"),
		defaultBalance: defaultBalance,
		now:            time.Now,
	}
}

// Purchase validates and commits one purchase attempt. Domain failures
// (not open, expired, sold out, limit, funds) leave no trace beyond a
// consumed request id; a committed sale debits the wallet, decrements
// stock and appends exactly one receipt. A failed entitlement grant is
// reported on the receipt but never reverses the sale.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*domain.Receipt, error) {
	if req.Tenant == "" || req.BuyerID == "" || req.ItemID == "" {
		return nil, errors.New("purchase: tenant, buyer id and item id are required")
	}

	ctx, span := s.tracer.Start(ctx, "market.purchase", trace.WithAttributes(
		attribute.String("tenant", req.Tenant),
		attribute.String("item_id", req.ItemID),
	))
	defer span.End()

	start := s.now()
	receipt, item, err := s.attempt(ctx, req)
	s.metrics.PurchaseDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		s.metrics.PurchaseOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
		s.logger.Info("purchase_rejected",
			zap.String("tenant", req.Tenant),
			zap.String("buyer_id", req.BuyerID),
			zap.String("item_id", req.ItemID),
			zap.String("outcome", outcomeLabel(err)),
		)
		return nil, err
	}

	// The sale is committed; the grant is best-effort from here on.
	if item.EntitlementKey != "" && s.granter != nil {
		if gerr := s.granter.Grant(ctx, req.BuyerID, item.EntitlementKey); gerr != nil {
			receipt.Warning = fmt.Sprintf("entitlement grant failed: %v", gerr)
			s.logger.Warn("entitlement_grant_failed",
				zap.String("tenant", req.Tenant),
				zap.String("buyer_id", req.BuyerID),
				zap.String("entitlement_key", item.EntitlementKey),
				zap.Error(gerr),
			)
		}
	}

	s.metrics.PurchaseOutcomes.WithLabelValues(outcomeCommitted).Inc()
	s.logger.Info("purchase_committed",
		zap.Int64("receipt_id", receipt.ID),
		zap.String("tenant", receipt.Tenant),
		zap.Int64("generation", receipt.Generation),
		zap.String("buyer_id", receipt.BuyerID),
		zap.String("item_id", receipt.ItemID),
		zap.Int("qty", receipt.Qty),
		zap.Int64("total_price", receipt.TotalPrice),
		zap.String("warning", receipt.Warning),
	)
	return receipt, nil
}

// attempt runs the serialized validate-and-commit sequence. It returns
// the committed receipt and the item it was validated against.
func (s *PurchaseService) attempt(ctx context.Context, req PurchaseRequest) (*domain.Receipt, *domain.InventoryItem, error) {
	// Claim the request id before touching any state. A repeat of the
	// same id is rejected even if the first attempt failed validation.
	if req.RequestID != "" && s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, "purchase:"+req.RequestID)
		if err != nil {
			s.logger.Warn("idempotency_check_failed", zap.String("request_id", req.RequestID), zap.Error(err))
		} else if !ok {
			return nil, nil, domain.ErrDuplicateRequest
		}
	}

	lock := s.markets.locks.Get(req.Tenant)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.repo.GetMarket(ctx, req.Tenant)
	if err != nil {
		return nil, nil, fmt.Errorf("load market: %w", err)
	}
	if !state.IsOpen {
		return nil, nil, domain.ErrNotOpen
	}

	now := s.now()
	if state.Expired(now) {
		// The window elapsed before the scheduler noticed; reconcile
		// lazily so the next caller sees a closed market.
		if cerr := s.markets.closeLocked(ctx, state, "expired"); cerr != nil {
			return nil, nil, fmt.Errorf("close expired market: %w", cerr)
		}
		return nil, nil, domain.ErrExpired
	}

	item, err := s.repo.GetItem(ctx, req.Tenant, state.Generation, req.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item.Stock <= 0 {
		return nil, nil, domain.ErrSoldOut
	}

	// A request for more than available silently reduces to the maximum
	// purchasable.
	qty := req.Qty
	if qty < 1 {
		qty = 1
	}
	if qty > item.Stock {
		qty = item.Stock
	}

	prior, err := s.repo.SumQty(ctx, req.Tenant, state.Generation, req.BuyerID, req.ItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("sum ledger qty: %w", err)
	}
	if prior+qty > item.PerUserLimit {
		return nil, nil, domain.ErrLimitReached
	}

	total := item.Price * int64(qty)

	wallet, err := s.wallets.GetOrCreate(ctx, req.BuyerID, s.defaultBalance)
	if err != nil {
		return nil, nil, fmt.Errorf("load wallet: %w", err)
	}
	if wallet.Balance < total {
		return nil, nil, domain.ErrInsufficientFunds
	}

	receipt, err := s.repo.ApplyPurchase(ctx, domain.Sale{
		Tenant:     req.Tenant,
		Generation: state.Generation,
		BuyerID:    req.BuyerID,
		ItemID:     req.ItemID,
		Qty:        qty,
		UnitPrice:  item.Price,
		TotalPrice: total,
	})
	if err != nil {
		return nil, nil, err
	}

	s.markets.invalidateListing(ctx, req.Tenant)
	return receipt, item, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotOpen):
		return outcomeNotOpen
	case errors.Is(err, domain.ErrExpired):
		return outcomeExpired
	case errors.Is(err, domain.ErrItemNotFound):
		return outcomeItemNotFound
	case errors.Is(err, domain.ErrSoldOut):
		return outcomeSoldOut
	case errors.Is(err, domain.ErrLimitReached):
		return outcomeLimitReached
	case errors.Is(err, domain.ErrInsufficientFunds):
		return outcomeInsufficientFunds
	case errors.Is(err, domain.ErrDuplicateRequest):
		return outcomeDuplicate
	default:
		return outcomeError
	}
}
