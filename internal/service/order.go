package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
	"belanjakita/backend/internal/xid"
)

// orderLine is one product/quantity pair after cart rows have been
// aggregated. Checkout locks and decrements in ascending ProductID order.
type orderLine struct {
	ProductID string
	Quantity  int
}

// CreateOrderFromCart checks out the given cart rows. The rows must all
// belong to the requesting user; quantities for the same product are
// summed before stock is touched. Consumed rows are deleted once the
// order is persisted.
func (s *Service) CreateOrderFromCart(ctx context.Context, req domain.CreateOrderFromCartRequest) (*domain.CreateOrderResponse, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	if len(req.CartItemIDs) == 0 {
		return nil, fmt.Errorf("%w: empty cart selection", domain.ErrOrderQuantityInvalid)
	}

	rows := make([]domain.Cart, 0, len(req.CartItemIDs))
	for _, id := range req.CartItemIDs {
		row, err := s.repo.GetCartItem(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrCartNotFound, id)
			}
			return nil, err
		}
		if !row.SameUser(req.UserID) {
			return nil, fmt.Errorf("%w: cart item %s", domain.ErrCartAccessDenied, id)
		}
		rows = append(rows, *row)
	}

	lines := aggregateLines(rows)
	resp, err := s.checkout(ctx, req.UserID, lines, req.CouponID, req.PointCents)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if err := s.repo.DeleteCartItem(ctx, row.ID); err != nil {
			log.Printf("[service] WARN: failed to delete cart item %s after checkout: %v", row.ID, err)
		}
	}
	return resp, nil
}

// CreateOrderFromProduct is the direct-purchase path, skipping the cart.
func (s *Service) CreateOrderFromProduct(ctx context.Context, req domain.CreateOrderFromProductRequest) (*domain.CreateOrderResponse, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	lines := []orderLine{{ProductID: req.ProductID, Quantity: req.Quantity}}
	return s.checkout(ctx, req.UserID, lines, req.CouponID, req.PointCents)
}

func aggregateLines(rows []domain.Cart) []orderLine {
	byProduct := make(map[string]int, len(rows))
	for _, row := range rows {
		byProduct[row.ProductID] += row.Quantity
	}
	lines := make([]orderLine, 0, len(byProduct))
	for id, qty := range byProduct {
		lines = append(lines, orderLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// checkout runs the full reservation sequence: stock, coupon, points,
// then the PENDING order. Each applied effect is recorded in the
// compensation log; any later failure unwinds them in reverse before the
// error is returned. Product locks are held for the whole sequence so
// nobody observes the intermediate state.
func (s *Service) checkout(ctx context.Context, userID string, lines []orderLine, couponID string, pointCents int64) (*domain.CreateOrderResponse, error) {
	now := s.now()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
		}
		return nil, err
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	lockIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		lockIDs = append(lockIDs, productLockKey(line.ProductID))
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.AcquireAll(lctx, lockIDs)
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	comp := &compensationLog{}

	// Stock reservation, ascending product id.
	var totalCents int64
	products := make(map[string]*domain.Product, len(lines))
	for _, line := range lines {
		line := line
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = fmt.Errorf("%w: %s", domain.ErrProductNotFound, line.ProductID)
			}
			return nil, s.compensate(ctx, comp, err)
		}
		if err := product.ValidateOrder(line.Quantity); err != nil {
			return nil, s.compensate(ctx, comp, err)
		}
		if err := product.DecreaseStock(line.Quantity); err != nil {
			return nil, s.compensate(ctx, comp, err)
		}
		product.IncreaseSoldCount(line.Quantity)
		product.UpdatedAt = now
		if err := s.repo.SaveProduct(ctx, *product); err != nil {
			return nil, s.compensate(ctx, comp, err)
		}
		products[line.ProductID] = product
		totalCents += product.PriceCents * int64(line.Quantity)

		comp.add("stock:"+line.ProductID, func(cctx context.Context) error {
			p, err := s.repo.GetProduct(cctx, line.ProductID)
			if err != nil {
				return err
			}
			if err := p.IncreaseStock(line.Quantity); err != nil {
				return err
			}
			p.DecreaseSoldCount(line.Quantity)
			return s.repo.SaveProduct(cctx, *p)
		})
	}

	// Coupon use.
	var discountCents int64
	if couponID != "" {
		discountCents, err = s.useCoupon(ctx, comp, userID, couponID, totalCents, now)
		if err != nil {
			return nil, s.compensate(ctx, comp, err)
		}
	}

	shippingCents := domain.ShippingFeeFor(totalCents)

	// The order id is minted before the point walk so usage history rows
	// can reference it.
	orderID := xid.New("ord")

	if pointCents > 0 {
		if err := s.consumePoints(ctx, comp, user, orderID, pointCents, now); err != nil {
			return nil, s.compensate(ctx, comp, err)
		}
	}

	order, err := domain.NewOrder(orderID, userID, couponID, totalCents, shippingCents, discountCents, pointCents, now)
	if err != nil {
		return nil, s.compensate(ctx, comp, err)
	}
	created, err := s.repo.CreateOrder(ctx, *order)
	if err != nil {
		return nil, s.compensate(ctx, comp, err)
	}

	// The persisted row is itself an applied effect: if a later step fails
	// the order must not survive as a chargeable PENDING.
	comp.add("order:"+created.ID, func(cctx context.Context) error {
		o, err := s.repo.GetOrder(cctx, created.ID)
		if err != nil {
			return err
		}
		if err := o.Cancel(s.now()); err != nil {
			return err
		}
		if err := s.repo.SaveOrder(cctx, *o); err != nil {
			return err
		}
		rows, err := s.repo.ListOrderItems(cctx, created.ID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			row.Cancel()
			if err := s.repo.SaveOrderItem(cctx, row); err != nil {
				return err
			}
		}
		return nil
	})

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		product := products[line.ProductID]
		item, err := s.repo.CreateOrderItem(ctx, domain.OrderItem{
			OrderID:        created.ID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			Status:         domain.OrderItemPending,
			CreatedAt:      now,
		})
		if err != nil {
			return nil, s.compensate(ctx, comp, err)
		}
		items = append(items, *item)
	}

	log.Printf("[service] order %s created: user=%s total=%d discount=%d points=%d shipping=%d final=%d",
		created.ID, userID, created.TotalCents, created.DiscountCents, created.PointCents, created.ShippingCents, created.FinalCents)
	return &domain.CreateOrderResponse{Order: created, Items: items}, nil
}

// GetOrder returns an order with its items; only the owner may read it.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*domain.CreateOrderResponse, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrOrderAccessDenied, orderID)
	}
	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &domain.CreateOrderResponse{Order: order, Items: items}, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByUser(ctx, userID)
}

// CancelOrder cancels a PENDING, PAYMENT_FAILED, or PAID order and
// releases whatever the order still holds. For PAYMENT_FAILED orders the
// release already ran at payment time, so the second pass finds nothing
// active and only flips the status.
func (s *Service) CancelOrder(ctx context.Context, req domain.CancelOrderRequest) (*domain.Order, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, orderLockKey(req.OrderID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.repo.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, req.OrderID)
		}
		return nil, err
	}
	if order.UserID != req.UserID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrOrderAccessDenied, req.OrderID)
	}
	if !order.CanCancel() {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidOrderStatus, order.Status, domain.OrderCanceled)
	}

	if err := s.compensateOrder(ctx, order); err != nil {
		log.Printf("[service] WARN: order %s canceled with incomplete release: %v", order.ID, err)
	}

	if err := order.Cancel(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveOrder(ctx, *order); err != nil {
		return nil, err
	}
	log.Printf("[service] order %s canceled by user %s", order.ID, req.UserID)
	return order, nil
}

// CompleteOrder moves a PAID order to COMPLETED (delivery confirmed).
func (s *Service) CompleteOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}
	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, orderLockKey(orderID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrOrderAccessDenied, orderID)
	}
	if err := order.Complete(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveOrder(ctx, *order); err != nil {
		return nil, err
	}

	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err == nil {
		for _, item := range items {
			if item.Status != domain.OrderItemPending {
				continue
			}
			item.Status = domain.OrderItemCompleted
			if err := s.repo.SaveOrderItem(ctx, item); err != nil {
				log.Printf("[service] WARN: failed to complete order item %s: %v", item.ID, err)
			}
		}
	}
	return order, nil
}
