package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"belanjakita/backend/internal/domain"
)

// Fifty users race for thirty coupons: exactly thirty issuances succeed
// and the issued counter lands exactly on the cap.
func TestIssueCouponNeverExceedsCap(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedCoupon(t, repo, domain.Coupon{
		ID:            "c1",
		Name:          "limited",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 1_000,
		TotalQuantity: 30,
	})
	for i := 0; i < 50; i++ {
		seedUser(t, repo, fmt.Sprintf("u%02d", i))
	}

	var wg sync.WaitGroup
	results := make(chan error, 50)
	for i := 0; i < 50; i++ {
		userID := fmt.Sprintf("u%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: userID, CouponID: "c1"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	issued, exhausted := 0, 0
	for err := range results {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, domain.ErrCouponAllIssued):
			exhausted++
		default:
			t.Fatalf("unexpected issue error: %v", err)
		}
	}
	if issued != 30 || exhausted != 20 {
		t.Fatalf("expected 30 issued and 20 exhausted, got %d/%d", issued, exhausted)
	}

	coupon, err := repo.GetCoupon(ctx, "c1")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if coupon.IssuedQuantity != 30 {
		t.Fatalf("expected issued quantity 30, got %d", coupon.IssuedQuantity)
	}
}

// One user hammering the issue endpoint gets exactly one coupon; every
// other attempt fails with already-issued, concurrent or not.
func TestIssueCouponOncePerUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedCoupon(t, repo, domain.Coupon{
		ID:            "c1",
		Name:          "one each",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 1_000,
		TotalQuantity: 100,
	})

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: "u1", CouponID: "c1"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	issued, dup := 0, 0
	for err := range results {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, domain.ErrCouponAlreadyIssued):
			dup++
		default:
			t.Fatalf("unexpected issue error: %v", err)
		}
	}
	if issued != 1 || dup != 9 {
		t.Fatalf("expected 1 issued and 9 duplicates, got %d/%d", issued, dup)
	}

	coupon, _ := repo.GetCoupon(ctx, "c1")
	if coupon.IssuedQuantity != 1 {
		t.Fatalf("expected issued quantity 1, got %d", coupon.IssuedQuantity)
	}
}

func TestIssueCouponHonorsWindow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	now := time.Now().UTC()

	seedCoupon(t, repo, domain.Coupon{
		ID:            "c-future",
		Name:          "not yet",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 1_000,
		TotalQuantity: 10,
		StartAt:       now.Add(time.Hour),
		EndAt:         now.Add(2 * time.Hour),
	})
	if _, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: "u1", CouponID: "c-future"}); !errors.Is(err, domain.ErrCouponNotStarted) {
		t.Fatalf("expected ErrCouponNotStarted, got %v", err)
	}

	seedCoupon(t, repo, domain.Coupon{
		ID:            "c-past",
		Name:          "too late",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 1_000,
		TotalQuantity: 10,
		StartAt:       now.Add(-2 * time.Hour),
		EndAt:         now.Add(-time.Hour),
	})
	if _, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: "u1", CouponID: "c-past"}); !errors.Is(err, domain.ErrCouponExpired) {
		t.Fatalf("expected ErrCouponExpired, got %v", err)
	}
}

// Canceling an order reopens the user's coupon for use but never hands
// the issuance slot back to the pool.
func TestCancelRestoresCouponUseNotIssuance(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedProduct(t, repo, "p1", 30_000, 10)
	seedCoupon(t, repo, domain.Coupon{
		ID:            "c1",
		Name:          "flat 5000",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 5_000,
		TotalQuantity: 1,
	})
	if _, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: "u1", CouponID: "c1"}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	resp, err := svc.CreateOrderFromProduct(ctx, domain.CreateOrderFromProductRequest{
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  1,
		CouponID:  "c1",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, domain.CancelOrderRequest{OrderID: resp.Order.ID, UserID: "u1"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	uc, err := repo.GetUserCoupon(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("get user coupon: %v", err)
	}
	if uc.Status != domain.UserCouponAvailable || uc.UsedCount != 0 {
		t.Fatalf("expected coupon usable again, got status=%s used=%d", uc.Status, uc.UsedCount)
	}

	coupon, _ := repo.GetCoupon(ctx, "c1")
	if coupon.IssuedQuantity != 1 {
		t.Fatalf("issued quantity must stay 1 after cancel, got %d", coupon.IssuedQuantity)
	}
	// Pool stays empty: another user still cannot grab it.
	seedUser(t, repo, "u2")
	if _, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: "u2", CouponID: "c1"}); !errors.Is(err, domain.ErrCouponAllIssued) {
		t.Fatalf("expected ErrCouponAllIssued, got %v", err)
	}
}

func TestCheckoutWithoutIssuedCouponFails(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedProduct(t, repo, "p1", 10_000, 10)
	seedCoupon(t, repo, domain.Coupon{
		ID:            "c1",
		Name:          "not mine",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 1_000,
		TotalQuantity: 10,
	})

	_, err := svc.CreateOrderFromProduct(ctx, domain.CreateOrderFromProductRequest{
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  1,
		CouponID:  "c1",
	})
	if !errors.Is(err, domain.ErrUserCouponNotFound) {
		t.Fatalf("expected ErrUserCouponNotFound, got %v", err)
	}
}

func TestCreateCouponRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	req := domain.CouponCreateRequest{
		Name:          "admin only",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 1_000,
		TotalQuantity: 5,
	}
	if _, err := svc.CreateCoupon(context.Background(), req); err == nil {
		t.Fatal("expected error without admin actor")
	}

	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
	created, err := svc.CreateCoupon(ctx, req)
	if err != nil {
		t.Fatalf("create coupon as admin: %v", err)
	}
	if created.PerUserLimit != 1 {
		t.Fatalf("expected default per-user limit 1, got %d", created.PerUserLimit)
	}
}
