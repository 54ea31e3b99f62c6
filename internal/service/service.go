// Package service implements the checkout engine: stock reservation,
// coupon issuance and use, the point ledger, and order/payment flows with
// compensation on failure. All aggregate mutations go through the lock
// registry; the repository only persists.
package service

import (
	"context"
	"fmt"
	"time"

	"belanjakita/backend/internal/catalog"
	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/locker"
	"belanjakita/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// requireSelf rejects a shopper token naming another shopper's user id.
// Admin tokens, accounts with no bound shopper id, and calls without an
// actor on the context (internal callers) pass through.
func requireSelf(ctx context.Context, userID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role == "admin" || actor.UserID == "" {
		return nil
	}
	if actor.UserID != userID {
		return fmt.Errorf("%w: user %s", domain.ErrActorMismatch, userID)
	}
	return nil
}

// PaymentGateway charges the final order amount against an external
// provider. A returned error means the charge did not go through and the
// order's reservations must be released.
type PaymentGateway interface {
	Charge(ctx context.Context, orderID string, amountCents int64, method string) error
}

// AutoApproveGateway approves every charge. Used in dev mode and tests.
type AutoApproveGateway struct{}

func (AutoApproveGateway) Charge(_ context.Context, _ string, _ int64, _ string) error {
	return nil
}

type Service struct {
	repo     store.Repository
	locks    *locker.Registry
	catalog  *catalog.Engine
	gateway  PaymentGateway
	lockWait time.Duration
	now      func() time.Time
}

func New(repo store.Repository, locks *locker.Registry, cat *catalog.Engine, gateway PaymentGateway, lockWait time.Duration) *Service {
	if gateway == nil {
		gateway = AutoApproveGateway{}
	}
	if lockWait <= 0 {
		lockWait = 3 * time.Second
	}

	return &Service{
		repo:     repo,
		locks:    locks,
		catalog:  cat,
		gateway:  gateway,
		lockWait: lockWait,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// lockCtx bounds how long a caller may wait behind another lock holder.
func (s *Service) lockCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.lockWait)
}

// Lock keys are namespaced per aggregate kind so a product and a coupon
// that happen to share an id never contend for the same lock.
func productLockKey(id string) string { return "product:" + id }
func couponLockKey(id string) string  { return "coupon:" + id }
func pointsLockKey(userID string) string {
	return "points:" + userID
}
func orderLockKey(id string) string { return "order:" + id }
