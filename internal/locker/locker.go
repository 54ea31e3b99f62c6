// Package locker provides per-aggregate exclusive locks. Every
// read-validate-mutate-write sequence on a Product, Coupon, Point lot, or
// Order must run between Acquire and its release; the registry hands out
// the same lock for the same id for the life of the process.
package locker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"belanjakita/backend/internal/domain"
)

// Registry maps aggregate ids to exclusive locks, created lazily and
// race-free. A weighted-1 semaphore is used instead of sync.Mutex so that
// acquisition can honor a context deadline: a caller stuck behind a slow
// holder fails with ErrLockWaitTimeout instead of waiting forever.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*semaphore.Weighted)}
}

func (r *Registry) lockFor(id string) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = semaphore.NewWeighted(1)
		r.locks[id] = l
	}
	return l
}

// Acquire blocks until the lock for id is held or ctx expires. The
// returned release is safe to call more than once.
func (r *Registry) Acquire(ctx context.Context, id string) (func(), error) {
	l := r.lockFor(id)
	if err := l.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockWaitTimeout, id)
	}
	var once sync.Once
	return func() {
		once.Do(func() { l.Release(1) })
	}, nil
}

// AcquireAll locks several aggregates of the same kind for one operation.
// Ids are deduplicated and locked in ascending order; every multi-lock
// caller taking the same total order is what rules out circular wait
// between orders that touch overlapping product sets. On failure the locks
// already taken are released in reverse.
func (r *Registry) AcquireAll(ctx context.Context, ids []string) (func(), error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, id := range sorted {
		release, err := r.Acquire(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	var once sync.Once
	return func() {
		once.Do(releaseAll)
	}, nil
}
