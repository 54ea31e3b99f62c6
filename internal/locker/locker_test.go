package locker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"belanjakita/backend/internal/domain"
)

func TestAcquireSerializesSameID(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := reg.Acquire(ctx, "product-1")
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
}

func TestAcquireTimesOut(t *testing.T) {
	reg := NewRegistry()

	release, err := reg.Acquire(context.Background(), "coupon-1")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := reg.Acquire(ctx, "coupon-1"); !errors.Is(err, domain.ErrLockWaitTimeout) {
		t.Fatalf("expected ErrLockWaitTimeout, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg := NewRegistry()

	release, err := reg.Acquire(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	release()
	release()

	if _, err := reg.Acquire(context.Background(), "order-1"); err != nil {
		t.Fatalf("reacquire after double release failed: %v", err)
	}
}

func TestAcquireAllAvoidsCircularWait(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	// Two goroutines hammer the same pair in opposite orders. With ordered
	// acquisition this must always terminate.
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		order := []string{"p-a", "p-b"}
		if i%2 == 1 {
			order = []string{"p-b", "p-a"}
		}
		wg.Add(1)
		go func(ids []string) {
			defer wg.Done()
			release, err := reg.AcquireAll(ctx, ids)
			if err != nil {
				t.Errorf("acquire all failed: %v", err)
				return
			}
			release()
		}(order)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock: AcquireAll did not terminate")
	}
}

func TestAcquireAllDeduplicates(t *testing.T) {
	reg := NewRegistry()

	release, err := reg.AcquireAll(context.Background(), []string{"p-1", "p-1", "p-2"})
	if err != nil {
		t.Fatalf("acquire all failed: %v", err)
	}
	release()

	// All locks must be free again after a single release.
	for _, id := range []string{"p-1", "p-2"} {
		r, err := reg.Acquire(context.Background(), id)
		if err != nil {
			t.Fatalf("lock %s not released: %v", id, err)
		}
		r()
	}
}
