package service

import (
	"context"
	"errors"
	"testing"

	"belanjakita/backend/internal/domain"
)

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func TestUpdateProductAppliesSetFieldsOnly(t *testing.T) {
	svc, repo := newTestService(t)
	seedProduct(t, repo, "p1", 10_000, 5)

	newPrice := int64(12_500)
	updated, err := svc.UpdateProduct(adminCtx(), "p1", domain.ProductUpdateRequest{PriceCents: &newPrice})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PriceCents != 12_500 {
		t.Fatalf("expected price 12500, got %d", updated.PriceCents)
	}
	if updated.Name != "Product p1" || updated.Stock != 5 || !updated.Active {
		t.Fatalf("unset fields changed: %+v", updated)
	}

	inactive := false
	updated, err = svc.UpdateProduct(adminCtx(), "p1", domain.ProductUpdateRequest{Active: &inactive})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if updated.Active {
		t.Fatal("expected product deactivated")
	}
}

func TestUpdateProductRejectsBadPriceAndNonAdmin(t *testing.T) {
	svc, repo := newTestService(t)
	seedProduct(t, repo, "p1", 10_000, 5)

	zero := int64(0)
	if _, err := svc.UpdateProduct(adminCtx(), "p1", domain.ProductUpdateRequest{PriceCents: &zero}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero price, got %v", err)
	}

	price := int64(9_000)
	shopper := WithActor(context.Background(), domain.Actor{Username: "shopper", Role: "shopper"})
	if _, err := svc.UpdateProduct(shopper, "p1", domain.ProductUpdateRequest{PriceCents: &price}); err == nil {
		t.Fatal("expected shopper update to be rejected")
	}
}

func TestDeleteProductHidesItFromReadsAndOrders(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedProduct(t, repo, "p1", 10_000, 5)

	if err := svc.DeleteProduct(adminCtx(), "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetProduct(ctx, "p1"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected deleted product to be gone, got %v", err)
	}
	_, err := svc.CreateOrderFromProduct(ctx, domain.CreateOrderFromProductRequest{
		UserID:    "u1",
		ProductID: "p1",
		Quantity:  1,
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected checkout against deleted product to fail, got %v", err)
	}
}

func TestUpdateCartItemReplacesQuantity(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")
	seedUser(t, repo, "u2")
	seedProduct(t, repo, "p1", 10_000, 5)

	row, err := svc.AddCartItem(ctx, domain.AddCartItemRequest{UserID: "u1", ProductID: "p1", Quantity: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := svc.UpdateCartItem(ctx, row.ID, domain.UpdateCartItemRequest{UserID: "u1", Quantity: 4})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", updated.Quantity)
	}

	if _, err := svc.UpdateCartItem(ctx, row.ID, domain.UpdateCartItemRequest{UserID: "u2", Quantity: 1}); !errors.Is(err, domain.ErrCartAccessDenied) {
		t.Fatalf("expected ErrCartAccessDenied, got %v", err)
	}
	if _, err := svc.UpdateCartItem(ctx, row.ID, domain.UpdateCartItemRequest{UserID: "u1", Quantity: 0}); !errors.Is(err, domain.ErrOrderQuantityInvalid) {
		t.Fatalf("expected ErrOrderQuantityInvalid, got %v", err)
	}
}
