package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"belanjakita/backend/internal/cache"
	"belanjakita/backend/internal/catalog"
	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/locker"
	"belanjakita/backend/internal/store/memory"
)

type decliningGateway struct{}

func (decliningGateway) Charge(_ context.Context, _ string, _ int64, _ string) error {
	return errors.New("card declined")
}

func newDecliningService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	cat := catalog.NewEngine(repo, cache.NoopCatalogCache{}, 5*time.Second)
	svc := New(repo, locker.NewRegistry(), cat, decliningGateway{}, 2*time.Second)
	return svc, repo
}

// checkoutEverything places an order holding stock, a coupon use, and
// points, so a compensation pass has all three kinds of effect to unwind.
func checkoutEverything(t *testing.T, svc *Service, repo *memory.Store) *domain.CreateOrderResponse {
	t.Helper()
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedProduct(t, repo, "p1", 60_000, 10)
	seedCoupon(t, repo, domain.Coupon{
		ID:            "c1",
		Name:          "flat 5000",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 5_000,
		TotalQuantity: 5,
	})
	if _, err := svc.IssueCoupon(ctx, domain.IssueCouponRequest{UserID: "u1", CouponID: "c1"}); err != nil {
		t.Fatalf("issue coupon: %v", err)
	}
	seedPoints(t, svc, "u1", 30_000)

	resp, err := svc.CreateOrderFromProduct(ctx, domain.CreateOrderFromProductRequest{
		UserID:     "u1",
		ProductID:  "p1",
		Quantity:   2,
		CouponID:   "c1",
		PointCents: 10_000,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return resp
}

func assertEverythingReleased(t *testing.T, svc *Service, repo *memory.Store, orderID string) {
	t.Helper()
	ctx := context.Background()

	product, _ := repo.GetProduct(ctx, "p1")
	if product.Stock != 10 || product.SoldCount != 0 {
		t.Fatalf("stock not released: stock=%d sold=%d", product.Stock, product.SoldCount)
	}

	uc, _ := repo.GetUserCoupon(ctx, "u1", "c1")
	if uc.Status != domain.UserCouponAvailable || uc.UsedCount != 0 {
		t.Fatalf("coupon use not reversed: status=%s used=%d", uc.Status, uc.UsedCount)
	}

	balance, _ := svc.PointBalance(ctx, "u1")
	if balance.BalanceCents != 30_000 {
		t.Fatalf("points not refunded: %d", balance.BalanceCents)
	}

	usages, _ := repo.ListActivePointUsageByOrder(ctx, orderID)
	if len(usages) != 0 {
		t.Fatalf("expected no active usage rows, got %d", len(usages))
	}

	items, _ := repo.ListOrderItems(ctx, orderID)
	for _, item := range items {
		if item.Status != domain.OrderItemCanceled {
			t.Fatalf("item %s not canceled: %s", item.ID, item.Status)
		}
	}
}

// A declined charge releases everything the order reserved and parks the
// order in PAYMENT_FAILED with a FAILED payment row.
func TestPaymentFailureReleasesEverything(t *testing.T) {
	svc, repo := newDecliningService(t)
	ctx := context.Background()
	resp := checkoutEverything(t, svc, repo)

	_, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{
		OrderID: resp.Order.ID,
		UserID:  "u1",
		Method:  "card",
	})
	if err == nil {
		t.Fatal("expected payment to fail")
	}

	order, _ := repo.GetOrder(ctx, resp.Order.ID)
	if order.Status != domain.OrderPaymentFailed {
		t.Fatalf("expected PAYMENT_FAILED, got %s", order.Status)
	}
	assertEverythingReleased(t, svc, repo, order.ID)

	// Issuance stays spent even though the use was reversed.
	coupon, _ := repo.GetCoupon(ctx, "c1")
	if coupon.IssuedQuantity != 1 {
		t.Fatalf("issued quantity must survive compensation, got %d", coupon.IssuedQuantity)
	}
}

// Canceling an order that already failed payment flips the status without
// releasing anything twice.
func TestCancelAfterPaymentFailureDoesNotDoubleRelease(t *testing.T) {
	svc, repo := newDecliningService(t)
	ctx := context.Background()
	resp := checkoutEverything(t, svc, repo)

	if _, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{
		OrderID: resp.Order.ID,
		UserID:  "u1",
		Method:  "card",
	}); err == nil {
		t.Fatal("expected payment to fail")
	}

	order, err := svc.CancelOrder(ctx, domain.CancelOrderRequest{OrderID: resp.Order.ID, UserID: "u1"})
	if err != nil {
		t.Fatalf("cancel after payment failure: %v", err)
	}
	if order.Status != domain.OrderCanceled {
		t.Fatalf("expected CANCELED, got %s", order.Status)
	}
	// Same post-state as after the payment failure: one release, not two.
	assertEverythingReleased(t, svc, repo, order.ID)
}

func TestSuccessfulPaymentTransitionsToPaid(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	resp := checkoutEverything(t, svc, repo)

	payResp, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{
		OrderID: resp.Order.ID,
		UserID:  "u1",
		Method:  "card",
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if payResp.Payment.Status != domain.PaymentCompleted {
		t.Fatalf("expected COMPLETED payment, got %s", payResp.Payment.Status)
	}
	if payResp.Order.Status != domain.OrderPaid {
		t.Fatalf("expected PAID order, got %s", payResp.Order.Status)
	}
	if payResp.Payment.AmountCents != resp.Order.FinalCents {
		t.Fatalf("payment amount %d != final %d", payResp.Payment.AmountCents, resp.Order.FinalCents)
	}

	// A second charge on the same order is rejected.
	if _, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{
		OrderID: resp.Order.ID,
		UserID:  "u1",
		Method:  "card",
	}); !errors.Is(err, domain.ErrInvalidPaymentStatus) {
		t.Fatalf("expected ErrInvalidPaymentStatus, got %v", err)
	}
}

func TestOrderLifecycleTransitions(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	resp := checkoutEverything(t, svc, repo)
	orderID := resp.Order.ID

	// COMPLETED requires PAID first.
	if _, err := svc.CompleteOrder(ctx, "u1", orderID); !errors.Is(err, domain.ErrInvalidOrderStatus) {
		t.Fatalf("expected ErrInvalidOrderStatus completing PENDING, got %v", err)
	}

	if _, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{OrderID: orderID, UserID: "u1", Method: "card"}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, "u1", orderID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// COMPLETED is terminal: no cancel, no second completion.
	if _, err := svc.CancelOrder(ctx, domain.CancelOrderRequest{OrderID: orderID, UserID: "u1"}); !errors.Is(err, domain.ErrInvalidOrderStatus) {
		t.Fatalf("expected ErrInvalidOrderStatus canceling COMPLETED, got %v", err)
	}
	if _, err := svc.CompleteOrder(ctx, "u1", orderID); !errors.Is(err, domain.ErrInvalidOrderStatus) {
		t.Fatalf("expected ErrInvalidOrderStatus completing twice, got %v", err)
	}
}

func TestCancelPaidOrderReleasesReservations(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	resp := checkoutEverything(t, svc, repo)

	if _, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{OrderID: resp.Order.ID, UserID: "u1", Method: "card"}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	order, err := svc.CancelOrder(ctx, domain.CancelOrderRequest{OrderID: resp.Order.ID, UserID: "u1"})
	if err != nil {
		t.Fatalf("cancel paid order: %v", err)
	}
	if order.Status != domain.OrderCanceled {
		t.Fatalf("expected CANCELED, got %s", order.Status)
	}
	assertEverythingReleased(t, svc, repo, order.ID)
}

// itemInsertFailingStore persists everything except order items.
type itemInsertFailingStore struct {
	*memory.Store
}

func (itemInsertFailingStore) CreateOrderItem(_ context.Context, _ domain.OrderItem) (*domain.OrderItem, error) {
	return nil, errors.New("order_items insert failed")
}

// A failure after the order row is persisted must unwind the row too;
// otherwise a PENDING order whose stock was already released could still
// be charged.
func TestItemInsertFailureLeavesNoChargeableOrder(t *testing.T) {
	repo := memory.New()
	cat := catalog.NewEngine(repo, cache.NoopCatalogCache{}, 5*time.Second)
	svc := New(itemInsertFailingStore{repo}, locker.NewRegistry(), cat, AutoApproveGateway{}, 2*time.Second)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedProduct(t, repo, "p1", 10_000, 10)

	if _, err := svc.CreateOrderFromProduct(ctx, domain.CreateOrderFromProductRequest{
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  2,
	}); err == nil {
		t.Fatal("expected checkout to fail")
	}

	product, _ := repo.GetProduct(ctx, "p1")
	if product.Stock != 10 || product.SoldCount != 0 {
		t.Fatalf("stock not released: stock=%d sold=%d", product.Stock, product.SoldCount)
	}

	orders, err := repo.ListOrdersByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected the unwound order row, got %d rows", len(orders))
	}
	if orders[0].Status != domain.OrderCanceled {
		t.Fatalf("expected CANCELED, got %s", orders[0].Status)
	}
	if _, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{
		OrderID: orders[0].ID,
		UserID:  "u1",
		Method:  "card",
	}); !errors.Is(err, domain.ErrInvalidPaymentStatus) {
		t.Fatalf("expected ErrInvalidPaymentStatus charging unwound order, got %v", err)
	}
}

func TestOrderAccessIsOwnerOnly(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	resp := checkoutEverything(t, svc, repo)
	seedUser(t, repo, "intruder")

	if _, err := svc.GetOrder(ctx, "intruder", resp.Order.ID); !errors.Is(err, domain.ErrOrderAccessDenied) {
		t.Fatalf("expected ErrOrderAccessDenied on read, got %v", err)
	}
	if _, err := svc.CancelOrder(ctx, domain.CancelOrderRequest{OrderID: resp.Order.ID, UserID: "intruder"}); !errors.Is(err, domain.ErrOrderAccessDenied) {
		t.Fatalf("expected ErrOrderAccessDenied on cancel, got %v", err)
	}
	if _, err := svc.CreatePayment(ctx, domain.CreatePaymentRequest{OrderID: resp.Order.ID, UserID: "intruder", Method: "card"}); !errors.Is(err, domain.ErrOrderAccessDenied) {
		t.Fatalf("expected ErrOrderAccessDenied on payment, got %v", err)
	}
}
