package domain

import (
	"fmt"
	"time"
)

type PointType string

const (
	PointCharge PointType = "charge"
	PointRefund PointType = "refund"
)

// Point is a single grant lot. Spending never deletes a lot; it accumulates
// UsedAmountCents, so restoration is exact.
type Point struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	AmountCents     int64      `json:"amount_cents"`
	UsedAmountCents int64      `json:"used_amount_cents"`
	Type            PointType  `json:"type"`
	Description     string     `json:"description,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
	Used            bool       `json:"used"`
	Expired         bool       `json:"expired"`
	CreatedAt       time.Time  `json:"created_at"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
}

func (p *Point) Remaining() int64 {
	return p.AmountCents - p.UsedAmountCents
}

// Available reports whether the lot can still be spent at now.
func (p *Point) Available(now time.Time) bool {
	if p.Used || p.Expired {
		return false
	}
	if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return false
	}
	return p.Remaining() > 0
}

// UsePartially consumes amount from the lot, up to its remaining balance.
func (p *Point) UsePartially(amount int64, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrPointAmountInvalid, amount)
	}
	if p.Used {
		return fmt.Errorf("%w: lot %s", ErrPointAlreadyUsed, p.ID)
	}
	if p.Expired || (!p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)) {
		return fmt.Errorf("%w: lot %s", ErrPointExpired, p.ID)
	}
	if amount > p.Remaining() {
		return fmt.Errorf("%w: remaining %d, requested %d", ErrInsufficientPoints, p.Remaining(), amount)
	}
	p.UsedAmountCents += amount
	p.UsedAt = &now
	if p.UsedAmountCents == p.AmountCents {
		p.Used = true
	}
	return nil
}

// RestoreUsed reverses a prior consumption during compensation.
func (p *Point) RestoreUsed(amount int64) error {
	if amount <= 0 || amount > p.UsedAmountCents {
		return fmt.Errorf("%w: used %d, restore %d", ErrPointAmountInvalid, p.UsedAmountCents, amount)
	}
	p.UsedAmountCents -= amount
	if p.Used && p.UsedAmountCents < p.AmountCents {
		p.Used = false
	}
	return nil
}

// PointUsageHistory joins a lot to the order that consumed part of it. It
// makes restoration precise (exactly what this order took from this lot)
// and idempotent (a canceled entry cannot be canceled again).
type PointUsageHistory struct {
	ID              string     `json:"id"`
	PointID         string     `json:"point_id"`
	OrderID         string     `json:"order_id"`
	UsedAmountCents int64      `json:"used_amount_cents"`
	CreatedAt       time.Time  `json:"created_at"`
	CanceledAt      *time.Time `json:"canceled_at,omitempty"`
}

func (h *PointUsageHistory) Canceled() bool {
	return h.CanceledAt != nil
}

func (h *PointUsageHistory) Cancel(now time.Time) error {
	if h.Canceled() {
		return fmt.Errorf("%w: history %s", ErrUsageAlreadyCanceled, h.ID)
	}
	h.CanceledAt = &now
	return nil
}
