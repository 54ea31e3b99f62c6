package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

func TestRepositoryRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("BELANJAKITA_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BELANJAKITA_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prd-it-%d", stamp)
	userID := fmt.Sprintf("usr-it-%d", stamp)
	couponID := fmt.Sprintf("cpn-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_coupons WHERE coupon_id = $1`, couponID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, couponID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	now := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID: productID, CategoryID: "cat-it", Name: "Integration Widget",
		PriceCents: 12_000, Stock: 10, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	p.Stock -= 3
	p.SoldCount += 3
	if err := s.SaveProduct(ctx, *p); err != nil {
		t.Fatalf("save product: %v", err)
	}
	p, err = s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if p.Stock != 7 || p.SoldCount != 3 {
		t.Fatalf("expected stock 7 / sold 3, got %d / %d", p.Stock, p.SoldCount)
	}

	if _, err := s.CreateUser(ctx, domain.User{ID: userID, Name: "IT Shopper", CreatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateCoupon(ctx, domain.Coupon{
		ID: couponID, Name: "IT Coupon", DiscountType: domain.DiscountFixed,
		DiscountValue: 1_000, TotalQuantity: 5, PerUserLimit: 1,
		StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour),
		Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	uc := domain.UserCoupon{
		UserID: userID, CouponID: couponID,
		Status: domain.UserCouponAvailable, IssuedAt: now,
	}
	if _, err := s.CreateUserCoupon(ctx, uc); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	// The UNIQUE(user_id, coupon_id) constraint must surface as ErrDuplicate,
	// it is what the issuance double-check leans on.
	if _, err := s.CreateUserCoupon(ctx, uc); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate error for second issue, got %v", err)
	}

	got, err := s.GetUserCoupon(ctx, userID, couponID)
	if err != nil {
		t.Fatalf("get user coupon: %v", err)
	}
	if got.Status != domain.UserCouponAvailable {
		t.Fatalf("expected AVAILABLE, got %s", got.Status)
	}
}
