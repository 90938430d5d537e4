package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingProducer(calls *int) Producer[int] {
	return func(ctx context.Context) int {
		*calls++
		return *calls
	}
}

func TestGetOrRefreshWithinWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore[int](WithClock[int](clock.Now))

	var calls int
	produce := countingProducer(&calls)

	first := s.GetOrRefresh(context.Background(), "weather", 5*time.Minute, produce)
	clock.Advance(4 * time.Minute)
	second := s.GetOrRefresh(context.Background(), "weather", 5*time.Minute, produce)

	if calls != 1 {
		t.Fatalf("expected producer to run once, ran %d times", calls)
	}
	if first != second {
		t.Fatalf("expected cached value %d, got %d", first, second)
	}
}

func TestGetOrRefreshAfterWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore[int](WithClock[int](clock.Now))

	var calls int
	produce := countingProducer(&calls)

	s.GetOrRefresh(context.Background(), "weather", 5*time.Minute, produce)

	// Freshness is strict: an entry exactly window old is stale.
	clock.Advance(5 * time.Minute)
	got := s.GetOrRefresh(context.Background(), "weather", 5*time.Minute, produce)

	if calls != 2 {
		t.Fatalf("expected producer to run twice, ran %d times", calls)
	}
	if got != 2 {
		t.Fatalf("expected refreshed value 2, got %d", got)
	}
}

func TestPerKeyWindows(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore[int](WithClock[int](clock.Now))

	s.Put("weather", 1)
	s.Put("steam", 1)
	clock.Advance(7 * time.Minute)

	if !s.IsStale("weather", 5*time.Minute) {
		t.Fatalf("expected weather to be stale under a 5m window")
	}
	if s.IsStale("steam", 10*time.Minute) {
		t.Fatalf("expected steam to be fresh under a 10m window")
	}
}

func TestIsStaleDoesNotMutate(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore[string](WithClock[string](clock.Now))

	if !s.IsStale("status", time.Minute) {
		t.Fatalf("expected missing key to be stale")
	}
	for i := 0; i < 3; i++ {
		if !s.IsStale("status", time.Minute) {
			t.Fatalf("expected missing key to stay stale on call %d", i)
		}
	}
	if _, _, err := s.Peek("status"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after IsStale calls, got %v", err)
	}

	s.Put("status", "hello")
	before := s.RefreshedAt("status")
	for i := 0; i < 3; i++ {
		if s.IsStale("status", time.Minute) {
			t.Fatalf("expected fresh entry on call %d", i)
		}
	}
	if after := s.RefreshedAt("status"); !after.Equal(before) {
		t.Fatalf("IsStale changed refreshedAt from %v to %v", before, after)
	}
}

func TestMarkRefreshedKeepsValue(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore[string](WithClock[string](clock.Now))

	s.Put("steam", "games")
	clock.Advance(10 * time.Minute)
	if !s.IsStale("steam", 5*time.Minute) {
		t.Fatalf("expected stale entry before MarkRefreshed")
	}

	s.MarkRefreshed("steam")
	if s.IsStale("steam", 5*time.Minute) {
		t.Fatalf("expected fresh entry after MarkRefreshed")
	}

	v, ts, err := s.Peek("steam")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "games" {
		t.Fatalf("expected value to survive MarkRefreshed, got %q", v)
	}
	if !ts.Equal(clock.Now()) {
		t.Fatalf("expected stamp %v, got %v", clock.Now(), ts)
	}
}

func TestMarkRefreshedWithoutValueStillProduces(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore[int](WithClock[int](clock.Now))

	s.MarkRefreshed("visitors")
	if s.IsStale("visitors", time.Minute) {
		t.Fatalf("expected stamped key to be fresh")
	}

	var calls int
	got := s.GetOrRefresh(context.Background(), "visitors", time.Minute, countingProducer(&calls))
	if calls != 1 || got != 1 {
		t.Fatalf("expected producer to fill empty entry, calls=%d got=%d", calls, got)
	}
}

func TestObserverReportsHitsAndMisses(t *testing.T) {
	clock := newFakeClock()

	var hits, misses int
	s := NewMemoryStore[int](
		WithClock[int](clock.Now),
		WithObserver[int](func(key string, hit bool) {
			if hit {
				hits++
			} else {
				misses++
			}
		}),
	)

	var calls int
	produce := countingProducer(&calls)
	s.GetOrRefresh(context.Background(), "weather", time.Minute, produce)
	s.GetOrRefresh(context.Background(), "weather", time.Minute, produce)
	s.GetOrRefresh(context.Background(), "weather", time.Minute, produce)

	if misses != 1 || hits != 2 {
		t.Fatalf("expected 1 miss and 2 hits, got %d misses and %d hits", misses, hits)
	}
}

func TestZeroWindowAlwaysRefreshes(t *testing.T) {
	s := NewMemoryStore[int]()

	var calls int
	produce := countingProducer(&calls)
	s.GetOrRefresh(context.Background(), "weather", 0, produce)
	s.GetOrRefresh(context.Background(), "weather", 0, produce)

	if calls != 2 {
		t.Fatalf("expected producer to run on every call with zero window, ran %d", calls)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMemoryStore[int]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.GetOrRefresh(context.Background(), "weather", time.Minute, func(ctx context.Context) int { return i })
			s.IsStale("weather", time.Minute)
			s.MarkRefreshed("weather")
		}(i)
	}
	wg.Wait()

	if _, _, err := s.Peek("weather"); err != nil {
		t.Fatalf("expected a stored value, got %v", err)
	}
}
