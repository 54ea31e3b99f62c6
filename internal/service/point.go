package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
)

// pointExpiry is how long a charged lot stays spendable.
const pointExpiry = 365 * 24 * time.Hour

// ChargePoints adds a new ledger lot and credits the user's balance
// mirror by the same amount.
func (s *Service) ChargePoints(ctx context.Context, req domain.ChargePointsRequest) (*domain.Point, error) {
	if err := requireSelf(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrPointAmountInvalid, req.AmountCents)
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, pointsLockKey(req.UserID))
	cancel()
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.repo.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, req.UserID)
		}
		return nil, err
	}

	now := s.now()
	lot, err := s.repo.CreatePoint(ctx, domain.Point{
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Type:        domain.PointCharge,
		Description: req.Description,
		ExpiresAt:   now.Add(pointExpiry),
		CreatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	if err := user.RefundPoints(req.AmountCents); err != nil {
		return nil, err
	}
	if err := s.repo.SaveUser(ctx, *user); err != nil {
		return nil, err
	}

	log.Printf("[service] charged %d point cents to user %s (balance %d)", req.AmountCents, req.UserID, user.PointBalanceCents)
	return lot, nil
}

// consumePoints spends amount from the user's lots oldest-first and writes
// one usage history row per touched lot, tied to orderID. The balance
// mirror is debited last; its undo is registered after the lot undo so the
// reverse walk refunds the balance before reopening the lots.
func (s *Service) consumePoints(ctx context.Context, comp *compensationLog, user *domain.User, orderID string, amount int64, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrPointAmountInvalid, amount)
	}

	lctx, cancel := s.lockCtx(ctx)
	release, err := s.locks.Acquire(lctx, pointsLockKey(user.ID))
	cancel()
	if err != nil {
		return err
	}
	defer release()

	lots, err := s.repo.ListPointsByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	var available int64
	for i := range lots {
		if lots[i].Available(now) {
			available += lots[i].Remaining()
		}
	}
	if available < amount {
		return fmt.Errorf("%w: available %d, requested %d", domain.ErrInsufficientPoints, available, amount)
	}

	type consumed struct {
		pointID string
		usageID string
		amount  int64
	}
	var applied []consumed

	left := amount
	for i := range lots {
		if left == 0 {
			break
		}
		lot := lots[i]
		if !lot.Available(now) {
			continue
		}
		take := lot.Remaining()
		if take > left {
			take = left
		}
		if err := lot.UsePartially(take, now); err != nil {
			return err
		}
		if err := s.repo.SavePoint(ctx, lot); err != nil {
			return err
		}
		usage, err := s.repo.CreatePointUsage(ctx, domain.PointUsageHistory{
			PointID:         lot.ID,
			OrderID:         orderID,
			UsedAmountCents: take,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		applied = append(applied, consumed{pointID: lot.ID, usageID: usage.ID, amount: take})
		left -= take
	}

	comp.add("point-lots:"+user.ID, func(cctx context.Context) error {
		lctx, cancel := s.lockCtx(cctx)
		rel, err := s.locks.Acquire(lctx, pointsLockKey(user.ID))
		cancel()
		if err != nil {
			return err
		}
		defer rel()

		cnow := s.now()
		for _, c := range applied {
			lot, err := s.repo.GetPoint(cctx, c.pointID)
			if err != nil {
				return err
			}
			if err := lot.RestoreUsed(c.amount); err != nil {
				return err
			}
			if err := s.repo.SavePoint(cctx, *lot); err != nil {
				return err
			}
			usage, err := s.repo.GetPointUsage(cctx, c.usageID)
			if err != nil {
				return err
			}
			if err := usage.Cancel(cnow); err != nil {
				return err
			}
			if err := s.repo.SavePointUsage(cctx, *usage); err != nil {
				return err
			}
		}
		return nil
	})

	if err := user.UsePoints(amount); err != nil {
		return err
	}
	if err := s.repo.SaveUser(ctx, *user); err != nil {
		return err
	}

	comp.add("point-balance:"+user.ID, func(cctx context.Context) error {
		lctx, cancel := s.lockCtx(cctx)
		rel, err := s.locks.Acquire(lctx, pointsLockKey(user.ID))
		cancel()
		if err != nil {
			return err
		}
		defer rel()

		u, err := s.repo.GetUser(cctx, user.ID)
		if err != nil {
			return err
		}
		if err := u.RefundPoints(amount); err != nil {
			return err
		}
		return s.repo.SaveUser(cctx, *u)
	})
	return nil
}

// PointBalance reads the aggregate mirror; it does not walk the lots.
func (s *Service) PointBalance(ctx context.Context, userID string) (*domain.PointBalanceResponse, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
		}
		return nil, err
	}
	return &domain.PointBalanceResponse{UserID: userID, BalanceCents: user.PointBalanceCents}, nil
}

// ListPointLots returns the user's ledger lots oldest-first.
func (s *Service) ListPointLots(ctx context.Context, userID string) ([]domain.Point, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
		}
		return nil, err
	}
	return s.repo.ListPointsByUser(ctx, userID)
}
