package domain

import (
	"fmt"
	"time"
)

// User carries the aggregate point balance, a mirror of the sum of lot
// remainders kept for cheap balance reads. The ledger lots stay the source
// of truth for which grants were spent.
type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	PointBalanceCents int64     `json:"point_balance_cents"`
	CreatedAt         time.Time `json:"created_at"`
}

func (u *User) UsePoints(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrPointAmountInvalid, amount)
	}
	if u.PointBalanceCents < amount {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientPoints, u.PointBalanceCents, amount)
	}
	u.PointBalanceCents -= amount
	return nil
}

func (u *User) RefundPoints(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrPointAmountInvalid, amount)
	}
	u.PointBalanceCents += amount
	return nil
}

// Cart is a row in a user's cart; checkout consumes and deletes rows.
type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Cart) SameUser(userID string) bool {
	return c.UserID == userID
}

// UserAccount is an API login principal, distinct from the shopper User.
// UserID links a shopper account to its User aggregate; admin accounts
// leave it empty.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	UserID    string    `json:"user_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
	UserID   string
}
