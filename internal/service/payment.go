package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

// CreatePayment charges the order's final amount through the gateway.
// Only PENDING orders are chargeable. On gateway failure everything the
// order reserved is released, a FAILED payment row is recorded, and the
// order moves to PAYMENT_FAILED; the gateway error is returned so the
// caller can retry with a fresh order.
func (s *Service) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, orderLockKey(req.OrderID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.repo.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, req.OrderID)
		}
		return nil, err
	}
	if order.UserID != req.UserID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrOrderAccessDenied, req.OrderID)
	}
	if order.Status != domain.OrderPending {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidPaymentStatus, order.ID, order.Status)
	}

	now := s.now()
	if chargeErr := s.gateway.Charge(ctx, order.ID, order.FinalCents, req.Method); chargeErr != nil {
		log.Printf("[service] payment failed for order %s: %v", order.ID, chargeErr)

		if _, err := s.repo.CreatePayment(ctx, domain.Payment{
			OrderID:     order.ID,
			AmountCents: order.FinalCents,
			Method:      req.Method,
			Status:      domain.PaymentFailed,
			FailReason:  chargeErr.Error(),
			CreatedAt:   now,
		}); err != nil {
			log.Printf("[service] WARN: failed to record failed payment for order %s: %v", order.ID, err)
		}

		if err := s.compensateOrder(ctx, order); err != nil {
			log.Printf("[service] WARN: order %s: release after payment failure incomplete: %v", order.ID, err)
		}
		if err := order.FailPayment(s.now()); err != nil {
			return nil, err
		}
		if err := s.repo.SaveOrder(ctx, *order); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("payment for order %s declined: %w", order.ID, chargeErr)
	}

	if err := order.Pay(now); err != nil {
		return nil, err
	}
	if err := s.repo.SaveOrder(ctx, *order); err != nil {
		return nil, err
	}

	payment, err := s.repo.CreatePayment(ctx, domain.Payment{
		OrderID:     order.ID,
		AmountCents: order.FinalCents,
		Method:      req.Method,
		Status:      domain.PaymentCompleted,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[service] order %s paid: amount=%d method=%s", order.ID, order.FinalCents, req.Method)
	return &domain.CreatePaymentResponse{Payment: payment, Order: order}, nil
}
