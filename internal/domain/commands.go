package domain

import "time"

// Command records accepted by the engine's use cases. Plain data, no
// behavior; validation happens in the service.

type CreateOrderFromCartRequest struct {
	UserID      string   `json:"user_id"`
	CartItemIDs []string `json:"cart_item_ids"`
	CouponID    string   `json:"coupon_id,omitempty"`
	PointCents  int64    `json:"point_cents,omitempty"`
}

type CreateOrderFromProductRequest struct {
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	CouponID   string `json:"coupon_id,omitempty"`
	PointCents int64  `json:"point_cents,omitempty"`
}

type CreateOrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}

type CreatePaymentRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Method  string `json:"method"`
}

type CreatePaymentResponse struct {
	Payment *Payment `json:"payment"`
	Order   *Order   `json:"order"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type IssueCouponRequest struct {
	UserID   string `json:"user_id"`
	CouponID string `json:"coupon_id"`
}

type ChargePointsRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

type PointBalanceResponse struct {
	UserID       string `json:"user_id"`
	BalanceCents int64  `json:"balance_cents"`
}

type AddCartItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ProductCreateRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	MinOrderQty int    `json:"min_order_qty,omitempty"`
	MaxOrderQty int    `json:"max_order_qty,omitempty"`
}

// ProductUpdateRequest carries optional fields; nil means leave unchanged.
type ProductUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type UpdateCartItemRequest struct {
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
}

type CouponCreateRequest struct {
	Name             string       `json:"name"`
	Code             string       `json:"code,omitempty"`
	DiscountType     DiscountType `json:"discount_type"`
	DiscountValue    int64        `json:"discount_value"`
	MaxDiscountCents int64        `json:"max_discount_cents,omitempty"`
	MinOrderCents    int64        `json:"min_order_cents,omitempty"`
	TotalQuantity    int          `json:"total_quantity"`
	PerUserLimit     int          `json:"per_user_limit"`
	StartAt          time.Time    `json:"start_at"`
	EndAt            time.Time    `json:"end_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type ProductSort string

const (
	SortPopular   ProductSort = "popular"
	SortLatest    ProductSort = "latest"
	SortPriceLow  ProductSort = "price_low"
	SortPriceHigh ProductSort = "price_high"
)

type ProductListRequest struct {
	CategoryID string      `json:"category_id,omitempty"`
	Sort       ProductSort `json:"sort,omitempty"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
}

type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Size     int       `json:"size"`
}
