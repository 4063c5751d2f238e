package keymutex

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGet_MemoizesHandle(t *testing.T) {
	r := NewRegistry()

	a := r.Get("user-1")
	b := r.Get("user-1")
	c := r.Get("user-2")

	if a != b {
		t.Fatalf("same key must return the same handle")
	}
	if a == c {
		t.Fatalf("different keys must return different handles")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
}

func TestDo_SerializesSameKey(t *testing.T) {
	r := NewRegistry()

	var inside, maxInside int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Do(context.Background(), "user-1", func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("Do error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent critical sections = %d, want 1", maxInside)
	}
}

func TestDo_ReleasesOnError(t *testing.T) {
	r := NewRegistry()

	wantErr := context.DeadlineExceeded
	err := r.Do(context.Background(), "user-1", func(ctx context.Context) error {
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Do error = %v, want %v", err, wantErr)
	}

	// Мьютекс должен быть свободен после ошибки в секции.
	done := make(chan struct{})
	go func() {
		_ = r.Do(context.Background(), "user-1", func(ctx context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("mutex leaked after error in critical section")
	}
}

func TestLock_CancelledContext(t *testing.T) {
	r := NewRegistry()
	h := r.Get("user-1")

	if err := h.Lock(context.Background()); err != nil {
		t.Fatalf("Lock error: %v", err)
	}
	defer h.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := h.Lock(ctx); err == nil {
		t.Fatalf("Lock on held mutex with expiring context must fail")
	}
}

func TestEvict(t *testing.T) {
	r := NewRegistry()
	h := r.Get("user-1")

	if err := h.Lock(context.Background()); err != nil {
		t.Fatalf("Lock error: %v", err)
	}
	if r.Evict("user-1") {
		t.Fatalf("held mutex must not be evicted")
	}
	h.Unlock()

	if !r.Evict("user-1") {
		t.Fatalf("idle mutex must be evicted")
	}
	if r.Evict("user-1") {
		t.Fatalf("second evict must report missing key")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}
