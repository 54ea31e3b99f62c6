package catalog

import (
	"context"
	"testing"
	"time"

	"belanjakita/backend/internal/cache"
	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store/memory"
)

func seedCatalog(t *testing.T, repo *memory.Store) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for _, p := range []domain.Product{
		{ID: "p-cheap", CategoryID: "cat-a", Name: "Cheap", PriceCents: 1_000, Stock: 10, SoldCount: 5, Active: true, CreatedAt: base},
		{ID: "p-mid", CategoryID: "cat-a", Name: "Mid", PriceCents: 5_000, Stock: 10, SoldCount: 50, Active: true, CreatedAt: base.Add(time.Minute)},
		{ID: "p-dear", CategoryID: "cat-b", Name: "Dear", PriceCents: 9_000, Stock: 10, SoldCount: 20, Active: true, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "p-hidden", CategoryID: "cat-a", Name: "Hidden", PriceCents: 2_000, Stock: 10, Active: false, CreatedAt: base},
	} {
		if _, err := repo.CreateProduct(context.Background(), p); err != nil {
			t.Fatalf("seed product %s: %v", p.ID, err)
		}
	}
}

func TestListFiltersInactiveAndSorts(t *testing.T) {
	repo := memory.New()
	seedCatalog(t, repo)
	engine := NewEngine(repo, cache.NoopCatalogCache{}, time.Second)

	resp, err := engine.List(context.Background(), domain.ProductListRequest{Sort: domain.SortPopular})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected 3 visible products, got %d", resp.Total)
	}
	if resp.Products[0].ID != "p-mid" {
		t.Fatalf("expected best seller first, got %s", resp.Products[0].ID)
	}
	for _, p := range resp.Products {
		if p.ID == "p-hidden" {
			t.Fatal("inactive product leaked into listing")
		}
	}

	resp, err = engine.List(context.Background(), domain.ProductListRequest{Sort: domain.SortPriceHigh})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Products[0].ID != "p-dear" {
		t.Fatalf("expected priciest first, got %s", resp.Products[0].ID)
	}
}

func TestListFiltersByCategoryAndPaginates(t *testing.T) {
	repo := memory.New()
	seedCatalog(t, repo)
	engine := NewEngine(repo, cache.NoopCatalogCache{}, time.Second)

	resp, err := engine.List(context.Background(), domain.ProductListRequest{CategoryID: "cat-a", Sort: domain.SortPriceLow, Page: 1, Size: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 products in cat-a, got %d", resp.Total)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "p-cheap" {
		t.Fatalf("unexpected first page: %+v", resp.Products)
	}

	resp, err = engine.List(context.Background(), domain.ProductListRequest{CategoryID: "cat-a", Sort: domain.SortPriceLow, Page: 2, Size: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "p-mid" {
		t.Fatalf("unexpected second page: %+v", resp.Products)
	}

	// A page past the end is empty, not an error.
	resp, err = engine.List(context.Background(), domain.ProductListRequest{CategoryID: "cat-a", Page: 9, Size: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Products) != 0 {
		t.Fatalf("expected empty page, got %d products", len(resp.Products))
	}
}

// countingCache records hits so the test can prove the second read was
// served from cache.
type countingCache struct {
	stored map[string]*domain.ProductListResponse
	gets   int
	sets   int
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.ProductListResponse, bool, error) {
	c.gets++
	resp, ok := c.stored[key]
	return resp, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value *domain.ProductListResponse, _ time.Duration) error {
	c.sets++
	c.stored[key] = value
	return nil
}

func (c *countingCache) Invalidate(_ context.Context) error {
	c.stored = make(map[string]*domain.ProductListResponse)
	return nil
}

func TestListUsesCacheOnRepeat(t *testing.T) {
	repo := memory.New()
	seedCatalog(t, repo)
	cc := &countingCache{stored: make(map[string]*domain.ProductListResponse)}
	engine := NewEngine(repo, cc, time.Minute)

	req := domain.ProductListRequest{Sort: domain.SortLatest}
	if _, err := engine.List(context.Background(), req); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if cc.sets != 1 {
		t.Fatalf("expected one cache fill, got %d", cc.sets)
	}
	if _, err := engine.List(context.Background(), req); err != nil {
		t.Fatalf("second list: %v", err)
	}
	if cc.sets != 1 {
		t.Fatalf("second read hit the repository, sets=%d", cc.sets)
	}

	engine.InvalidateListings(context.Background())
	if _, err := engine.List(context.Background(), req); err != nil {
		t.Fatalf("list after invalidation: %v", err)
	}
	if cc.sets != 2 {
		t.Fatalf("expected cache refill after invalidation, sets=%d", cc.sets)
	}
}
