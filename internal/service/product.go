package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

// ListProducts serves the browsing surface through the catalog engine and
// its cache.
func (s *Service) ListProducts(ctx context.Context, req domain.ProductListRequest) (*domain.ProductListResponse, error) {
	return s.catalog.List(ctx, req)
}

// GetProduct returns one product and bumps its view counter. The bump is
// best-effort; a lost increment only nudges the popularity ranking.
func (s *Service) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return nil, err
	}

	product.ViewCount++
	if err := s.repo.SaveProduct(ctx, *product); err != nil {
		log.Printf("[service] WARN: failed to bump view count for %s: %v", productID, err)
	}
	return product, nil
}

// CreateProduct is an admin operation.
func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents < 1 || req.Stock < 0 {
		return nil, fmt.Errorf("%w: name and a positive price are required", domain.ErrInvalidInput)
	}
	if req.MinOrderQty < 0 || req.MaxOrderQty < 0 || (req.MaxOrderQty > 0 && req.MinOrderQty > req.MaxOrderQty) {
		return nil, fmt.Errorf("%w: order quantity bounds", domain.ErrOrderQuantityInvalid)
	}

	now := s.now()
	created, err := s.repo.CreateProduct(ctx, domain.Product{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Active:      true,
		MinOrderQty: req.MinOrderQty,
		MaxOrderQty: req.MaxOrderQty,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	s.catalog.InvalidateListings(ctx)
	log.Printf("[service] product %s created: name=%q price=%d stock=%d", created.ID, created.Name, created.PriceCents, created.Stock)
	return created, nil
}

// UpdateProduct applies the set fields of the request (admin). Price and
// name changes take effect immediately; deactivation hides the product
// from listings and blocks new orders but leaves existing orders alone.
func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}
	if req.PriceCents != nil && *req.PriceCents < 1 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, productLockKey(productID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return nil, err
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.PriceCents != nil {
		product.PriceCents = *req.PriceCents
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.UpdatedAt = s.now()
	if err := s.repo.SaveProduct(ctx, *product); err != nil {
		return nil, err
	}

	s.catalog.InvalidateListings(ctx)
	return product, nil
}

// DeleteProduct soft-deletes a product (admin). The row survives so order
// items keep a valid reference; reads and listings stop returning it.
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	if err := requireRole(ctx, "admin"); err != nil {
		return err
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, productLockKey(productID))
	cancel()
	if err != nil {
		return err
	}
	defer release()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return err
	}
	now := s.now()
	product.Active = false
	product.DeletedAt = &now
	product.UpdatedAt = now
	if err := s.repo.SaveProduct(ctx, *product); err != nil {
		return err
	}

	s.catalog.InvalidateListings(ctx)
	log.Printf("[service] product %s deleted", productID)
	return nil
}

// RestockProduct adds inventory outside the order flow (admin).
func (s *Service) RestockProduct(ctx context.Context, productID string, qty int) (*domain.Product, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, productLockKey(productID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return nil, err
	}
	if err := product.IncreaseStock(qty); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.now()
	if err := s.repo.SaveProduct(ctx, *product); err != nil {
		return nil, err
	}

	s.catalog.InvalidateListings(ctx)
	return product, nil
}
