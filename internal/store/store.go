package store

import (
	"context"
	"errors"

	"belanjakita/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated,
	// e.g. a second UserCoupon for the same (user, coupon) pair.
	ErrDuplicate = errors.New("duplicate record")
)

// Repository is the persistence boundary for all aggregates. Implementations
// must be safe for concurrent use; they provide durability and uniqueness,
// not serialization. The service layer serializes mutations per aggregate
// through the lock registry.
type Repository interface {
	// Products
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	SaveProduct(ctx context.Context, p domain.Product) error
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// Users (shoppers)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	SaveUser(ctx context.Context, u domain.User) error

	// Coupons
	GetCoupon(ctx context.Context, id string) (*domain.Coupon, error)
	CreateCoupon(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	SaveCoupon(ctx context.Context, c domain.Coupon) error
	GetUserCoupon(ctx context.Context, userID, couponID string) (*domain.UserCoupon, error)
	CreateUserCoupon(ctx context.Context, uc domain.UserCoupon) (*domain.UserCoupon, error)
	SaveUserCoupon(ctx context.Context, uc domain.UserCoupon) error

	// Point ledger
	GetPoint(ctx context.Context, id string) (*domain.Point, error)
	CreatePoint(ctx context.Context, p domain.Point) (*domain.Point, error)
	SavePoint(ctx context.Context, p domain.Point) error
	// ListPointsByUser returns the user's lots ordered by creation time
	// ascending; the service picks the available ones (FIFO consumption).
	ListPointsByUser(ctx context.Context, userID string) ([]domain.Point, error)
	GetPointUsage(ctx context.Context, id string) (*domain.PointUsageHistory, error)
	CreatePointUsage(ctx context.Context, h domain.PointUsageHistory) (*domain.PointUsageHistory, error)
	SavePointUsage(ctx context.Context, h domain.PointUsageHistory) error
	// ListActivePointUsageByOrder returns usage entries for the order whose
	// CanceledAt is still nil.
	ListActivePointUsageByOrder(ctx context.Context, orderID string) ([]domain.PointUsageHistory, error)

	// Orders
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	CreateOrder(ctx context.Context, o domain.Order) (*domain.Order, error)
	SaveOrder(ctx context.Context, o domain.Order) error
	CreateOrderItem(ctx context.Context, i domain.OrderItem) (*domain.OrderItem, error)
	SaveOrderItem(ctx context.Context, i domain.OrderItem) error
	ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// Payments
	CreatePayment(ctx context.Context, p domain.Payment) (*domain.Payment, error)

	// Carts
	GetCartItem(ctx context.Context, id string) (*domain.Cart, error)
	CreateCartItem(ctx context.Context, c domain.Cart) (*domain.Cart, error)
	SaveCartItem(ctx context.Context, c domain.Cart) error
	DeleteCartItem(ctx context.Context, id string) error
	ListCartByUser(ctx context.Context, userID string) ([]domain.Cart, error)

	// API accounts
	GetAccount(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateAccount(ctx context.Context, a domain.UserAccount) error
}
