package domain

import "errors"

// Sentinel errors form the engine's failure taxonomy. Callers classify with
// errors.Is; services wrap these with fmt.Errorf("...: %w", ...) to attach
// ids and amounts.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrUserCouponNotFound = errors.New("user coupon not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCartNotFound       = errors.New("cart item not found")
	ErrPointNotFound      = errors.New("point lot not found")
	ErrPaymentNotFound    = errors.New("payment not found")

	ErrProductInactive      = errors.New("product is not active")
	ErrOutOfStock           = errors.New("product out of stock")
	ErrOrderQuantityInvalid = errors.New("order quantity outside allowed range")

	ErrCouponAllIssued       = errors.New("coupon fully issued")
	ErrCouponAlreadyIssued   = errors.New("coupon already issued to user")
	ErrCouponNotAvailable    = errors.New("coupon not available")
	ErrCouponExpired         = errors.New("coupon expired")
	ErrCouponNotStarted      = errors.New("coupon not started")
	ErrCouponUsageLimit      = errors.New("coupon usage limit reached")
	ErrCouponMinOrderNotMet  = errors.New("order amount below coupon minimum")
	ErrCouponNoUsageToCancel = errors.New("no coupon usage to cancel")

	ErrInsufficientPoints   = errors.New("insufficient point balance")
	ErrPointAmountInvalid   = errors.New("invalid point amount")
	ErrPointExpired         = errors.New("point lot expired")
	ErrPointAlreadyUsed     = errors.New("point lot fully used")
	ErrUsageAlreadyCanceled = errors.New("point usage already canceled")

	ErrInvalidOrderStatus   = errors.New("invalid order status for transition")
	ErrFinalAmountNegative  = errors.New("final order amount would be negative")
	ErrCartAccessDenied     = errors.New("cart item belongs to another user")
	ErrOrderAccessDenied    = errors.New("order belongs to another user")
	ErrInvalidPaymentStatus = errors.New("invalid payment status for transition")

	// ErrInvalidInput covers malformed admin and command payloads that no
	// more specific sentinel describes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrActorMismatch is returned when a shopper token names a user id
	// other than the one the account is bound to.
	ErrActorMismatch = errors.New("account is bound to another user")

	ErrLockWaitTimeout = errors.New("timed out waiting for resource lock")
	// ErrCompensationFailed marks a best-effort rollback that itself errored.
	// It is logged, never surfaced in place of the original failure.
	ErrCompensationFailed = errors.New("compensation step failed")
)
