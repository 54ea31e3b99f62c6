// Package catalog serves product listings: filtering, ranking, paging,
// and a short-TTL cache in front of the repository. Rankings tolerate
// slightly stale counters; checkout never reads through this package.
package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"time"

	"belanjakita/backend/internal/cache"
	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Engine struct {
	repo     store.Repository
	cache    cache.CatalogCache
	cacheTTL time.Duration
}

func NewEngine(repo store.Repository, cacheStore cache.CatalogCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopCatalogCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// List returns one page of the catalog. Cache errors degrade to a direct
// repository read; a listing must never fail because redis is down.
func (e *Engine) List(ctx context.Context, req domain.ProductListRequest) (*domain.ProductListResponse, error) {
	req = normalize(req)

	key := buildCacheKey(req)
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[catalog] WARN: cache read failed: %v", err)
	}

	products, err := e.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	filtered := products[:0:0]
	for _, p := range products {
		if !p.Active {
			continue
		}
		if req.CategoryID != "" && p.CategoryID != req.CategoryID {
			continue
		}
		filtered = append(filtered, p)
	}

	rank(filtered, req.Sort)

	total := len(filtered)
	start := (req.Page - 1) * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}

	resp := &domain.ProductListResponse{
		Products: filtered[start:end],
		Total:    total,
		Page:     req.Page,
		Size:     req.Size,
	}

	if err := e.cache.Set(ctx, key, resp, e.cacheTTL); err != nil {
		log.Printf("[catalog] WARN: cache write failed: %v", err)
	}
	return resp, nil
}

// InvalidateListings drops cached pages after a product mutation.
func (e *Engine) InvalidateListings(ctx context.Context) {
	if err := e.cache.Invalidate(ctx); err != nil {
		log.Printf("[catalog] WARN: cache invalidation failed: %v", err)
	}
}

func normalize(req domain.ProductListRequest) domain.ProductListRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size <= 0 {
		req.Size = defaultPageSize
	}
	if req.Size > maxPageSize {
		req.Size = maxPageSize
	}
	if req.Sort == "" {
		req.Sort = domain.SortLatest
	}
	return req
}

func rank(products []domain.Product, by domain.ProductSort) {
	switch by {
	case domain.SortPopular:
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].SoldCount != products[j].SoldCount {
				return products[i].SoldCount > products[j].SoldCount
			}
			return products[i].ViewCount > products[j].ViewCount
		})
	case domain.SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].PriceCents < products[j].PriceCents
		})
	case domain.SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].PriceCents > products[j].PriceCents
		})
	default: // latest
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	}
}

func buildCacheKey(req domain.ProductListRequest) string {
	raw := fmt.Sprintf("%s|%s|%d|%d", req.CategoryID, req.Sort, req.Page, req.Size)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
