package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

// IssueCoupon grants one UserCoupon to the user if supply remains and the
// user has none yet. The duplicate check runs twice: once before taking
// the coupon lock, so repeat clickers are turned away without contending,
// and once under the lock, which is the authoritative check. The store's
// (user, coupon) uniqueness constraint backstops both.
func (s *Service) IssueCoupon(ctx context.Context, req domain.IssueCouponRequest) (*domain.UserCoupon, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, req.UserID)
		}
		return nil, err
	}

	// Fast path, no lock.
	if _, err := s.repo.GetUserCoupon(ctx, req.UserID, req.CouponID); err == nil {
		return nil, fmt.Errorf("%w: coupon %s", domain.ErrCouponAlreadyIssued, req.CouponID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, couponLockKey(req.CouponID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	coupon, err := s.repo.GetCoupon(ctx, req.CouponID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCouponNotFound, req.CouponID)
		}
		return nil, err
	}
	if err := coupon.ValidateAvailability(now); err != nil {
		return nil, err
	}

	// Double-check under the lock.
	if _, err := s.repo.GetUserCoupon(ctx, req.UserID, req.CouponID); err == nil {
		return nil, fmt.Errorf("%w: coupon %s", domain.ErrCouponAlreadyIssued, req.CouponID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := coupon.IncreaseIssuedQuantity(); err != nil {
		return nil, err
	}
	coupon.UpdatedAt = now
	if err := s.repo.SaveCoupon(ctx, *coupon); err != nil {
		return nil, err
	}

	uc, err := s.repo.CreateUserCoupon(ctx, domain.UserCoupon{
		UserID:   req.UserID,
		CouponID: req.CouponID,
		Status:   domain.UserCouponAvailable,
		IssuedAt: now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: coupon %s", domain.ErrCouponAlreadyIssued, req.CouponID)
		}
		return nil, err
	}

	log.Printf("[service] coupon %s issued to user %s (%d/%d)", req.CouponID, req.UserID, coupon.IssuedQuantity, coupon.TotalQuantity)
	return uc, nil
}

// useCoupon validates and consumes the user's coupon for this checkout
// and returns the discount. Called with the checkout's compensation log;
// the registered undo reverses the use, never the issuance.
func (s *Service) useCoupon(ctx context.Context, comp *compensationLog, userID, couponID string, orderCents int64, now time.Time) (int64, error) {
	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, couponLockKey(couponID))
	cancel()
	if err != nil {
		return 0, err
	}
	defer release()

	coupon, err := s.repo.GetCoupon(ctx, couponID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrCouponNotFound, couponID)
		}
		return 0, err
	}
	if err := coupon.ValidateAvailability(now); err != nil {
		return 0, err
	}

	uc, err := s.repo.GetUserCoupon(ctx, userID, couponID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: coupon %s", domain.ErrUserCouponNotFound, couponID)
		}
		return 0, err
	}

	discount, err := coupon.DiscountFor(orderCents)
	if err != nil {
		return 0, err
	}
	if err := uc.Use(coupon.PerUserLimit, now); err != nil {
		return 0, err
	}
	if err := s.repo.SaveUserCoupon(ctx, *uc); err != nil {
		return 0, err
	}

	comp.add("coupon:"+couponID, func(cctx context.Context) error {
		return s.cancelCouponUse(cctx, userID, couponID)
	})
	return discount, nil
}

// CreateCoupon is an admin operation.
func (s *Service) CreateCoupon(ctx context.Context, req domain.CouponCreateRequest) (*domain.Coupon, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}
	if req.Name == "" || req.TotalQuantity <= 0 || req.DiscountValue <= 0 {
		return nil, fmt.Errorf("%w: name, total_quantity and discount_value are required", domain.ErrInvalidInput)
	}
	switch req.DiscountType {
	case domain.DiscountPercentage, domain.DiscountFixed:
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", domain.ErrInvalidInput, req.DiscountType)
	}
	perUserLimit := req.PerUserLimit
	if perUserLimit <= 0 {
		perUserLimit = 1
	}

	now := s.now()
	return s.repo.CreateCoupon(ctx, domain.Coupon{
		Name:             req.Name,
		Code:             req.Code,
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue,
		MaxDiscountCents: req.MaxDiscountCents,
		MinOrderCents:    req.MinOrderCents,
		TotalQuantity:    req.TotalQuantity,
		PerUserLimit:     perUserLimit,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// SetCouponActive toggles issuance availability without touching the
// issued ledger.
func (s *Service) SetCouponActive(ctx context.Context, couponID string, active bool) (*domain.Coupon, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, couponLockKey(couponID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	coupon, err := s.repo.GetCoupon(ctx, couponID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCouponNotFound, couponID)
		}
		return nil, err
	}
	coupon.Active = active
	coupon.UpdatedAt = s.now()
	if err := s.repo.SaveCoupon(ctx, *coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return fmt.Errorf("%s role required", role)
	}
	return nil
}
