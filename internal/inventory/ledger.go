// Package inventory is the single source of truth for on-hand and
// reserved stock. Every mutation appends an audit transaction and
// publishes a stock-changed event so cart owners can be revalidated.
package inventory

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"go.uber.org/zap"
)

// TopicStockChanged carries the product id of a mutated ledger row.
const TopicStockChanged = "inventory:stock_changed"

// ProductMirror pushes ledger changes back onto the catalog row so
// product listings can render quantity and the in-stock flag without a
// join.
type ProductMirror interface {
	SyncQuantity(ctx context.Context, productID int64, quantity int, inStock bool) error
}

// Service wraps the ledger repository with audit logging, catalog
// mirroring and event publication.
type Service struct {
	repo   Repository
	mirror ProductMirror
	bus    EventBus.Bus
}

func NewService(repo Repository, mirror ProductMirror, bus EventBus.Bus) *Service {
	return &Service{repo: repo, mirror: mirror, bus: bus}
}

func (s *Service) Repo() Repository {
	return s.repo
}

// GetAvailableQuantity returns max(0, quantity-reserved) for productID,
// or zero when the product has no ledger row.
func (s *Service) GetAvailableQuantity(ctx context.Context, productID int64) int {
	item, err := s.repo.Get(ctx, productID)
	if err != nil {
		return 0
	}
	return item.Available()
}

// Get returns the ledger row for productID.
func (s *Service) Get(ctx context.Context, productID int64) (*domain.InventoryItem, error) {
	return s.repo.Get(ctx, productID)
}

// EnsureItem creates the ledger row for a new product.
func (s *Service) EnsureItem(ctx context.Context, productID int64, quantity, threshold int) error {
	return s.repo.Ensure(ctx, productID, quantity, threshold)
}

// ReserveStock holds qty units for an in-flight cart or order.
func (s *Service) ReserveStock(ctx context.Context, productID int64, qty int, actor string) error {
	if qty <= 0 {
		return nil
	}
	item, err := s.repo.Reserve(ctx, productID, qty)
	if err != nil {
		return err
	}
	s.audit(ctx, item, domain.TxnReserve, qty, actor, "")
	s.afterChange(ctx, item)
	return nil
}

// ReleaseReservedStock gives back qty held units, floored at zero.
func (s *Service) ReleaseReservedStock(ctx context.Context, productID int64, qty int, actor string) error {
	if qty <= 0 {
		return nil
	}
	item, err := s.repo.Release(ctx, productID, qty)
	if err != nil {
		return err
	}
	s.audit(ctx, item, domain.TxnRelease, -qty, actor, "")
	s.afterChange(ctx, item)
	return nil
}

// ProcessOrder converts qty reserved units into fulfilled stock:
// reserved and quantity drop together. Fails when reserved < qty.
func (s *Service) ProcessOrder(ctx context.Context, productID int64, qty int, actor, orderNo string) error {
	item, err := s.repo.Fulfill(ctx, productID, qty)
	if err != nil {
		return err
	}
	s.audit(ctx, item, domain.TxnFulfillment, -qty, actor, "order "+orderNo)
	s.afterChange(ctx, item)
	return nil
}

// UpdateStock is the admin-facing absolute set. It refuses to set
// quantity below the current reservation total unless force is set, and
// always records a before/after audit entry.
func (s *Service) UpdateStock(ctx context.Context, productID int64, quantity int, actor, note string, force bool) error {
	before, err := s.repo.Get(ctx, productID)
	if err != nil {
		return err
	}
	item, err := s.repo.SetQuantity(ctx, productID, quantity, force)
	if err != nil {
		return err
	}
	txn := &domain.InventoryTransaction{
		ID:             common.UUIDint64(),
		ProductID:      productID,
		Type:           domain.TxnStockSet,
		Delta:          item.Quantity - before.Quantity,
		QuantityBefore: before.Quantity,
		QuantityAfter:  item.Quantity,
		ReservedBefore: before.Reserved,
		ReservedAfter:  item.Reserved,
		Actor:          actor,
		Note:           note,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.AppendTransaction(ctx, txn); err != nil {
		zap.L().Error("failed to append inventory transaction",
			zap.Int64("product_id", productID), zap.Error(err))
	}
	s.afterChange(ctx, item)
	return nil
}

// RestockOrder returns a cancelled order's units to the shelf.
func (s *Service) RestockOrder(ctx context.Context, productID int64, qty int, actor, orderNo string) error {
	if qty <= 0 {
		return nil
	}
	item, err := s.repo.Restock(ctx, productID, qty)
	if err != nil {
		return err
	}
	s.audit(ctx, item, domain.TxnRestock, qty, actor, "order "+orderNo)
	s.afterChange(ctx, item)
	return nil
}

// ReleaseStaleReservations returns holds to the shelf on rows whose
// audit log has been quiet for longer than ttl. Reservations normally
// live only inside one checkout call, so an old untouched hold means
// the process died between reserve and fulfill or release. Returns the
// number of rows reclaimed.
func (s *Service) ReleaseStaleReservations(ctx context.Context, ttl time.Duration) (int, error) {
	items, err := s.repo.ReservedItems(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ttl)
	released := 0
	for _, item := range items {
		txns, _, err := s.repo.ListTransactions(ctx, item.ProductID, time.Time{}, time.Time{}, 1, 1)
		if err != nil {
			return released, err
		}
		if len(txns) > 0 && !txns[0].CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.ReleaseReservedStock(ctx, item.ProductID, item.Reserved, "scheduler"); err != nil {
			zap.L().Error("failed to release stale reservation",
				zap.Int64("product_id", item.ProductID),
				zap.Int("reserved", item.Reserved), zap.Error(err))
			continue
		}
		zap.L().Warn("released stale reservation",
			zap.Int64("product_id", item.ProductID),
			zap.Int("reserved", item.Reserved))
		released++
	}
	return released, nil
}

// ListTransactions pages the audit log, newest first.
func (s *Service) ListTransactions(ctx context.Context, productID int64, from, to time.Time, page, pageSize int) ([]*domain.InventoryTransaction, int64, error) {
	return s.repo.ListTransactions(ctx, productID, from, to, page, pageSize)
}

// LowStock lists ledger rows at or under their threshold.
func (s *Service) LowStock(ctx context.Context) ([]*domain.InventoryItem, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) audit(ctx context.Context, item *domain.InventoryItem, txnType string, delta int, actor, note string) {
	qtyDelta := 0
	resDelta := 0
	switch txnType {
	case domain.TxnReserve, domain.TxnRelease:
		resDelta = delta
	case domain.TxnFulfillment:
		qtyDelta = delta
		resDelta = delta
	case domain.TxnRestock:
		qtyDelta = delta
	}
	txn := &domain.InventoryTransaction{
		ID:             common.UUIDint64(),
		ProductID:      item.ProductID,
		Type:           txnType,
		Delta:          delta,
		QuantityBefore: item.Quantity - qtyDelta,
		QuantityAfter:  item.Quantity,
		ReservedBefore: item.Reserved - resDelta,
		ReservedAfter:  item.Reserved,
		Actor:          actor,
		Note:           note,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.AppendTransaction(ctx, txn); err != nil {
		zap.L().Error("failed to append inventory transaction",
			zap.Int64("product_id", item.ProductID), zap.Error(err))
	}
}

func (s *Service) afterChange(ctx context.Context, item *domain.InventoryItem) {
	if s.mirror != nil {
		inStock := item.Available() > 0
		if err := s.mirror.SyncQuantity(ctx, item.ProductID, item.Quantity, inStock); err != nil {
			zap.L().Error("failed to mirror inventory to catalog",
				zap.Int64("product_id", item.ProductID), zap.Error(err))
		}
	}
	if item.Available() <= item.LowStockThreshold {
		zap.L().Warn("product stock low",
			zap.Int64("product_id", item.ProductID),
			zap.Int("available", item.Available()),
			zap.Int("threshold", item.LowStockThreshold))
	}
	if s.bus != nil {
		s.bus.Publish(TopicStockChanged, item.ProductID)
	}
}
