package cache

import (
	"context"
	"time"

	"belanjakita/backend/internal/domain"
)

type CatalogCache interface {
	Get(ctx context.Context, key string) (*domain.ProductListResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.ProductListResponse, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) (*domain.ProductListResponse, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ *domain.ProductListResponse, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
