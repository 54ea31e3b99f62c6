package domain

import (
	"fmt"
	"time"
)

// Product is mutated only while the caller holds the product's lock from
// the lock registry; the methods themselves do no locking.
type Product struct {
	ID          string     `json:"id"`
	CategoryID  string     `json:"category_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	PriceCents  int64      `json:"price_cents"`
	Stock       int        `json:"stock"`
	SoldCount   int        `json:"sold_count"`
	ViewCount   int        `json:"view_count"`
	Active      bool       `json:"active"`
	MinOrderQty int        `json:"min_order_qty,omitempty"` // 0 = no minimum
	MaxOrderQty int        `json:"max_order_qty,omitempty"` // 0 = no maximum
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

func (p *Product) Deleted() bool {
	return p.DeletedAt != nil
}

// CanOrder reports whether qty is orderable right now without saying why not.
func (p *Product) CanOrder(qty int) bool {
	return p.ValidateOrder(qty) == nil
}

// ValidateOrder distinguishes the reasons an order is rejected so the
// caller can surface the right failure.
func (p *Product) ValidateOrder(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity %d", ErrOrderQuantityInvalid, qty)
	}
	if !p.Active || p.Deleted() {
		return fmt.Errorf("%w: product %s", ErrProductInactive, p.ID)
	}
	if p.MinOrderQty > 0 && qty < p.MinOrderQty {
		return fmt.Errorf("%w: minimum %d, requested %d", ErrOrderQuantityInvalid, p.MinOrderQty, qty)
	}
	if p.MaxOrderQty > 0 && qty > p.MaxOrderQty {
		return fmt.Errorf("%w: maximum %d, requested %d", ErrOrderQuantityInvalid, p.MaxOrderQty, qty)
	}
	if qty > p.Stock {
		return fmt.Errorf("%w: stock %d, requested %d", ErrOutOfStock, p.Stock, qty)
	}
	return nil
}

func (p *Product) DecreaseStock(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity %d", ErrOrderQuantityInvalid, qty)
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: stock %d, requested %d", ErrOutOfStock, p.Stock, qty)
	}
	p.Stock -= qty
	return nil
}

func (p *Product) IncreaseStock(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity %d", ErrOrderQuantityInvalid, qty)
	}
	p.Stock += qty
	return nil
}

func (p *Product) IncreaseSoldCount(qty int) {
	if qty > 0 {
		p.SoldCount += qty
	}
}

// DecreaseSoldCount floors at zero. This clamp is the only guard keeping a
// cancellation storm from driving the counter negative.
func (p *Product) DecreaseSoldCount(qty int) {
	if qty <= 0 {
		return
	}
	if qty > p.SoldCount {
		qty = p.SoldCount
	}
	p.SoldCount -= qty
}
