package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderPending       OrderStatus = "PENDING"
	OrderPaid          OrderStatus = "PAID"
	OrderCompleted     OrderStatus = "COMPLETED"
	OrderPaymentFailed OrderStatus = "PAYMENT_FAILED"
	OrderCanceled      OrderStatus = "CANCELED"
)

// Shipping policy: orders at or above the threshold ship free.
const (
	FreeShippingThresholdCents int64 = 50_000
	ShippingFeeCents           int64 = 3_000
)

func ShippingFeeFor(totalCents int64) int64 {
	if totalCents >= FreeShippingThresholdCents {
		return 0
	}
	return ShippingFeeCents
}

type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	CouponID      string      `json:"coupon_id,omitempty"`
	TotalCents    int64       `json:"total_cents"`
	DiscountCents int64       `json:"discount_cents"`
	PointCents    int64       `json:"point_cents"`
	ShippingCents int64       `json:"shipping_cents"`
	FinalCents    int64       `json:"final_cents"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	CanceledAt    *time.Time  `json:"canceled_at,omitempty"`
}

// NewOrder computes the final amount and starts the order in PENDING.
func NewOrder(id, userID, couponID string, totalCents, shippingCents, discountCents, pointCents int64, now time.Time) (*Order, error) {
	if totalCents < 0 || shippingCents < 0 || discountCents < 0 || pointCents < 0 {
		return nil, fmt.Errorf("%w: amounts must be non-negative", ErrFinalAmountNegative)
	}
	finalCents := totalCents + shippingCents - discountCents - pointCents
	if finalCents < 0 {
		return nil, fmt.Errorf("%w: %d", ErrFinalAmountNegative, finalCents)
	}
	return &Order{
		ID:            id,
		UserID:        userID,
		CouponID:      couponID,
		TotalCents:    totalCents,
		DiscountCents: discountCents,
		PointCents:    pointCents,
		ShippingCents: shippingCents,
		FinalCents:    finalCents,
		Status:        OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (o *Order) transitionErr(target OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidOrderStatus, o.Status, target)
}

// Pay moves PENDING -> PAID.
func (o *Order) Pay(now time.Time) error {
	if o.Status != OrderPending {
		return o.transitionErr(OrderPaid)
	}
	o.Status = OrderPaid
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// Complete moves PAID -> COMPLETED. COMPLETED is terminal.
func (o *Order) Complete(now time.Time) error {
	if o.Status != OrderPaid {
		return o.transitionErr(OrderCompleted)
	}
	o.Status = OrderCompleted
	o.UpdatedAt = now
	return nil
}

// FailPayment moves PENDING -> PAYMENT_FAILED.
func (o *Order) FailPayment(now time.Time) error {
	if o.Status != OrderPending {
		return o.transitionErr(OrderPaymentFailed)
	}
	o.Status = OrderPaymentFailed
	o.UpdatedAt = now
	return nil
}

// Cancel moves PENDING, PAYMENT_FAILED, or PAID -> CANCELED. CANCELED is
// terminal.
func (o *Order) Cancel(now time.Time) error {
	switch o.Status {
	case OrderPending, OrderPaymentFailed, OrderPaid:
		o.Status = OrderCanceled
		o.CanceledAt = &now
		o.UpdatedAt = now
		return nil
	default:
		return o.transitionErr(OrderCanceled)
	}
}

func (o *Order) CanCancel() bool {
	return o.Status == OrderPending || o.Status == OrderPaymentFailed || o.Status == OrderPaid
}

type OrderItemStatus string

const (
	OrderItemPending   OrderItemStatus = "PENDING"
	OrderItemCompleted OrderItemStatus = "COMPLETED"
	OrderItemCanceled  OrderItemStatus = "CANCELED"
)

type OrderItem struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	Status         OrderItemStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (i *OrderItem) Cancel() {
	i.Status = OrderItemCanceled
}

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Payment struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	AmountCents int64         `json:"amount_cents"`
	Method      string        `json:"method"`
	Status      PaymentStatus `json:"status"`
	FailReason  string        `json:"fail_reason,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
