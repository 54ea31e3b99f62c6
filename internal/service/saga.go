package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"belanjakita/backend/internal/domain"
)

// compensationLog records the effects a checkout has applied so far, in
// order. When a later step fails, run undoes them newest-first, so the
// world is unwound in the exact reverse of how it was changed.
type compensationLog struct {
	steps []compensationStep
}

type compensationStep struct {
	name string
	undo func(ctx context.Context) error
}

func (c *compensationLog) add(name string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, compensationStep{name: name, undo: undo})
}

// run is best-effort: a failing undo is logged and skipped, and the rest
// still execute. Partial compensation surfaces as ErrCompensationFailed so
// the caller can flag the order for manual review instead of silently
// leaking reservations.
func (c *compensationLog) run(ctx context.Context) error {
	var failed []string
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.undo(ctx); err != nil {
			log.Printf("[service] WARN: compensation step %q failed: %v", step.name, err)
			failed = append(failed, step.name)
		}
	}
	c.steps = nil
	if len(failed) > 0 {
		return fmt.Errorf("%w: steps %v", domain.ErrCompensationFailed, failed)
	}
	return nil
}

// compensate unwinds the log and returns the original cause. The
// compensation outcome is logged, not returned; the caller's failure is
// what the user needs to see.
func (s *Service) compensate(ctx context.Context, comp *compensationLog, cause error) error {
	if err := comp.run(ctx); err != nil {
		log.Printf("[service] WARN: incomplete compensation after %v: %v", cause, err)
	}
	return cause
}

// compensateOrder releases everything a persisted PENDING order holds:
// the user's point balance, the consumed ledger lots, the coupon use, and
// the reserved stock, in that sequence. It is driven off stored state
// (active usage rows, non-canceled items) so running it against an order
// that was already unwound is a no-op.
//
// Callers must hold the order's lock. Product and point locks are taken
// here.
func (s *Service) compensateOrder(ctx context.Context, order *domain.Order) error {
	now := s.now()
	var failed []string

	// Point balance and lots. The refund amount is the sum of still-active
	// usage rows, not order.PointCents, so a second pass refunds nothing.
	usages, err := s.repo.ListActivePointUsageByOrder(ctx, order.ID)
	if err != nil {
		log.Printf("[service] WARN: compensation: list point usage order=%s: %v", order.ID, err)
		failed = append(failed, "point-usage-list")
		usages = nil
	}
	if len(usages) > 0 {
		if err := s.refundOrderPoints(ctx, order, usages, now); err != nil {
			log.Printf("[service] WARN: compensation: refund points order=%s: %v", order.ID, err)
			failed = append(failed, "points")
		}
	}

	// Coupon use.
	if order.CouponID != "" {
		if err := s.cancelCouponUse(ctx, order.UserID, order.CouponID); err != nil {
			if errors.Is(err, domain.ErrCouponNoUsageToCancel) {
				// Already reversed by an earlier compensation pass.
			} else {
				log.Printf("[service] WARN: compensation: cancel coupon use order=%s: %v", order.ID, err)
				failed = append(failed, "coupon")
			}
		}
	}

	// Stock. Items already canceled were restored before; skip them.
	if err := s.restoreOrderStock(ctx, order.ID); err != nil {
		log.Printf("[service] WARN: compensation: restore stock order=%s: %v", order.ID, err)
		failed = append(failed, "stock")
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: steps %v", domain.ErrCompensationFailed, failed)
	}
	return nil
}

func (s *Service) refundOrderPoints(ctx context.Context, order *domain.Order, usages []domain.PointUsageHistory, now time.Time) error {
	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, pointsLockKey(order.UserID))
	cancel()
	if err != nil {
		return err
	}
	defer release()

	var refunded int64
	for _, h := range usages {
		lot, err := s.repo.GetPoint(ctx, h.PointID)
		if err != nil {
			return fmt.Errorf("load lot %s: %w", h.PointID, err)
		}
		if err := lot.RestoreUsed(h.UsedAmountCents); err != nil {
			return fmt.Errorf("restore lot %s: %w", h.PointID, err)
		}
		if err := s.repo.SavePoint(ctx, *lot); err != nil {
			return fmt.Errorf("save lot %s: %w", h.PointID, err)
		}
		if err := h.Cancel(now); err != nil {
			return fmt.Errorf("cancel usage %s: %w", h.ID, err)
		}
		if err := s.repo.SavePointUsage(ctx, h); err != nil {
			return fmt.Errorf("save usage %s: %w", h.ID, err)
		}
		refunded += h.UsedAmountCents
	}

	user, err := s.repo.GetUser(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", order.UserID, err)
	}
	if err := user.RefundPoints(refunded); err != nil {
		return err
	}
	return s.repo.SaveUser(ctx, *user)
}

func (s *Service) cancelCouponUse(ctx context.Context, userID, couponID string) error {
	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, couponLockKey(couponID))
	cancel()
	if err != nil {
		return err
	}
	defer release()

	coupon, err := s.repo.GetCoupon(ctx, couponID)
	if err != nil {
		return err
	}
	uc, err := s.repo.GetUserCoupon(ctx, userID, couponID)
	if err != nil {
		return err
	}
	if err := uc.CancelUse(coupon.PerUserLimit); err != nil {
		return err
	}
	return s.repo.SaveUserCoupon(ctx, *uc)
}

func (s *Service) restoreOrderStock(ctx context.Context, orderID string) error {
	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return err
	}

	active := make([]domain.OrderItem, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Status == domain.OrderItemCanceled {
			continue
		}
		active = append(active, item)
		ids = append(ids, productLockKey(item.ProductID))
	}
	if len(active) == 0 {
		return nil
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.AcquireAll(lctx, ids)
	cancel()
	if err != nil {
		return err
	}
	defer release()

	for _, item := range active {
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("load product %s: %w", item.ProductID, err)
		}
		if err := product.IncreaseStock(item.Quantity); err != nil {
			return err
		}
		product.DecreaseSoldCount(item.Quantity)
		product.UpdatedAt = s.now()
		if err := s.repo.SaveProduct(ctx, *product); err != nil {
			return fmt.Errorf("save product %s: %w", item.ProductID, err)
		}
		item.Cancel()
		if err := s.repo.SaveOrderItem(ctx, item); err != nil {
			return fmt.Errorf("save order item %s: %w", item.ID, err)
		}
	}
	return nil
}
