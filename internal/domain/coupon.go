package domain

import (
	"fmt"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Code          string       `json:"code,omitempty"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"` // percent for percentage, cents for fixed
	// MaxDiscountCents caps a percentage discount; 0 = no cap.
	MaxDiscountCents int64 `json:"max_discount_cents,omitempty"`
	// MinOrderCents is the smallest order total the coupon applies to; 0 = none.
	MinOrderCents int64 `json:"min_order_cents,omitempty"`
	TotalQuantity int   `json:"total_quantity"`
	// IssuedQuantity only ever grows. Cancellation reverses usage on the
	// UserCoupon, never issuance; issuance is a permanent historical fact.
	IssuedQuantity int       `json:"issued_quantity"`
	PerUserLimit   int       `json:"per_user_limit"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ValidateAvailability checks active state and the issue window at now.
func (c *Coupon) ValidateAvailability(now time.Time) error {
	if !c.Active {
		return fmt.Errorf("%w: coupon %s", ErrCouponNotAvailable, c.ID)
	}
	if !c.StartAt.IsZero() && now.Before(c.StartAt) {
		return fmt.Errorf("%w: starts %s", ErrCouponNotStarted, c.StartAt.Format(time.RFC3339))
	}
	if !c.EndAt.IsZero() && now.After(c.EndAt) {
		return fmt.Errorf("%w: ended %s", ErrCouponExpired, c.EndAt.Format(time.RFC3339))
	}
	return nil
}

func (c *Coupon) HasRemainingQuantity() bool {
	return c.IssuedQuantity < c.TotalQuantity
}

func (c *Coupon) IncreaseIssuedQuantity() error {
	if !c.HasRemainingQuantity() {
		return fmt.Errorf("%w: %d of %d issued", ErrCouponAllIssued, c.IssuedQuantity, c.TotalQuantity)
	}
	c.IssuedQuantity++
	return nil
}

// DiscountFor computes the discount in cents for an order total.
// Percentage discounts round down and honor MaxDiscountCents; fixed
// discounts clamp to the order amount.
func (c *Coupon) DiscountFor(orderCents int64) (int64, error) {
	if orderCents <= 0 {
		return 0, nil
	}
	if c.MinOrderCents > 0 && orderCents < c.MinOrderCents {
		return 0, fmt.Errorf("%w: minimum %d, order %d", ErrCouponMinOrderNotMet, c.MinOrderCents, orderCents)
	}

	switch c.DiscountType {
	case DiscountPercentage:
		discount := orderCents * c.DiscountValue / 100
		if c.MaxDiscountCents > 0 && discount > c.MaxDiscountCents {
			discount = c.MaxDiscountCents
		}
		return discount, nil
	case DiscountFixed:
		discount := c.DiscountValue
		if discount > orderCents {
			discount = orderCents
		}
		return discount, nil
	default:
		return 0, fmt.Errorf("%w: unknown discount type %q", ErrCouponNotAvailable, c.DiscountType)
	}
}

type UserCouponStatus string

const (
	UserCouponAvailable UserCouponStatus = "AVAILABLE"
	UserCouponUsed      UserCouponStatus = "USED"
	UserCouponExpired   UserCouponStatus = "EXPIRED"
)

// UserCoupon is the per-user issuance record; (UserID, CouponID) is unique.
type UserCoupon struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	CouponID  string           `json:"coupon_id"`
	Status    UserCouponStatus `json:"status"`
	UsedCount int              `json:"used_count"`
	IssuedAt  time.Time        `json:"issued_at"`
	UsedAt    *time.Time       `json:"used_at,omitempty"`
	ExpiredAt *time.Time       `json:"expired_at,omitempty"`
}

func (uc *UserCoupon) ValidateCanUse(perUserLimit int) error {
	switch uc.Status {
	case UserCouponUsed:
		return fmt.Errorf("%w: coupon %s", ErrCouponUsageLimit, uc.CouponID)
	case UserCouponExpired:
		return fmt.Errorf("%w: coupon %s", ErrCouponExpired, uc.CouponID)
	case UserCouponAvailable:
	default:
		return fmt.Errorf("%w: status %s", ErrCouponNotAvailable, uc.Status)
	}
	if uc.UsedCount >= perUserLimit {
		return fmt.Errorf("%w: used %d of %d", ErrCouponUsageLimit, uc.UsedCount, perUserLimit)
	}
	return nil
}

func (uc *UserCoupon) Use(perUserLimit int, now time.Time) error {
	if err := uc.ValidateCanUse(perUserLimit); err != nil {
		return err
	}
	uc.UsedCount++
	uc.UsedAt = &now
	if uc.UsedCount >= perUserLimit {
		uc.Status = UserCouponUsed
	}
	return nil
}

// CancelUse reverses one Use during compensation or order cancellation.
func (uc *UserCoupon) CancelUse(perUserLimit int) error {
	if uc.UsedCount <= 0 {
		return fmt.Errorf("%w: coupon %s", ErrCouponNoUsageToCancel, uc.CouponID)
	}
	uc.UsedCount--
	if uc.Status == UserCouponUsed && uc.UsedCount < perUserLimit {
		uc.Status = UserCouponAvailable
	}
	return nil
}

func (uc *UserCoupon) Expire(now time.Time) error {
	if uc.Status != UserCouponAvailable {
		return fmt.Errorf("%w: status %s", ErrCouponNotAvailable, uc.Status)
	}
	uc.Status = UserCouponExpired
	uc.ExpiredAt = &now
	return nil
}
