package service

import (
	"context"
	"errors"
	"fmt"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

// AddCartItem puts a product in the user's cart. A second add of the same
// product merges into the existing row instead of duplicating it. No
// stock is reserved at this stage; availability is only decided at
// checkout.
func (s *Service) AddCartItem(ctx context.Context, req domain.AddCartItemRequest) (*domain.Cart, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", domain.ErrOrderQuantityInvalid, req.Quantity)
	}
	if _, err := s.repo.GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, req.UserID)
		}
		return nil, err
	}
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, req.ProductID)
		}
		return nil, err
	}
	if !product.Active || product.Deleted() {
		return nil, fmt.Errorf("%w: product %s", domain.ErrProductInactive, req.ProductID)
	}

	rows, err := s.repo.ListCartByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.ProductID != req.ProductID {
			continue
		}
		row.Quantity += req.Quantity
		if err := s.repo.SaveCartItem(ctx, row); err != nil {
			return nil, err
		}
		return &row, nil
	}

	return s.repo.CreateCartItem(ctx, domain.Cart{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		CreatedAt: s.now(),
	})
}

func (s *Service) ListCart(ctx context.Context, userID string) ([]domain.Cart, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListCartByUser(ctx, userID)
}

// UpdateCartItem replaces a row's quantity. Setting the quantity is not
// validated against stock; availability is decided at checkout.
func (s *Service) UpdateCartItem(ctx context.Context, cartItemID string, req domain.UpdateCartItemRequest) (*domain.Cart, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", domain.ErrOrderQuantityInvalid, req.Quantity)
	}
	row, err := s.repo.GetCartItem(ctx, cartItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCartNotFound, cartItemID)
		}
		return nil, err
	}
	if !row.SameUser(req.UserID) {
		return nil, fmt.Errorf("%w: cart item %s", domain.ErrCartAccessDenied, cartItemID)
	}
	row.Quantity = req.Quantity
	if err := s.repo.SaveCartItem(ctx, *row); err != nil {
		return nil, err
	}
	return row, nil
}

// RemoveCartItem deletes a row after checking it belongs to the caller.
func (s *Service) RemoveCartItem(ctx context.Context, userID, cartItemID string) error {
	if err := requireSelf(ctx, userID); err != nil {
		return err
	}
	row, err := s.repo.GetCartItem(ctx, cartItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrCartNotFound, cartItemID)
		}
		return err
	}
	if !row.SameUser(userID) {
		return fmt.Errorf("%w: cart item %s", domain.ErrCartAccessDenied, cartItemID)
	}
	return s.repo.DeleteCartItem(ctx, cartItemID)
}
