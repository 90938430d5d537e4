package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cosinefox/telemetry-aggregation/internal/store"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingAggregator struct {
	category   Category
	configured bool
	calls      atomic.Int32
	now        func() time.Time
}

func (a *countingAggregator) Category() Category { return a.category }
func (a *countingAggregator) Configured() bool   { return a.configured }

func (a *countingAggregator) Aggregate(ctx context.Context) Snapshot {
	n := a.calls.Add(1)
	status := HealthNominal
	if !a.configured {
		status = HealthUnconfigured
	}
	return FeedSnapshot{
		Kind:      a.category,
		Data:      json.RawMessage(`{"n":` + strconv.Itoa(int(n)) + `}`),
		Status:    status,
		FetchedAt: a.now().UnixMilli(),
	}
}

type durationObserver struct {
	mu    sync.Mutex
	calls map[string]int
}

func (o *durationObserver) AggregationDuration(category string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[category]++
}

func newTestService(clock *testClock, aggs ...Aggregator) *Service {
	st := store.NewMemoryStore[Snapshot](store.WithClock[Snapshot](clock.Now))
	return NewService(st, aggs, WithWindows(map[Category]time.Duration{CategorySteam: 10 * time.Minute}))
}

func TestServiceGetCachesWithinWindow(t *testing.T) {
	clock := &testClock{now: fixedNow}
	weather := &countingAggregator{category: CategoryWeather, configured: true, now: clock.Now}
	svc := newTestService(clock, weather)

	first, err := svc.Get(context.Background(), CategoryWeather)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(4 * time.Minute)
	second, _ := svc.Get(context.Background(), CategoryWeather)

	if weather.calls.Load() != 1 {
		t.Fatalf("expected one aggregation, got %d", weather.calls.Load())
	}
	if !first.CapturedAt().Equal(second.CapturedAt()) {
		t.Fatalf("expected the cached snapshot to be served")
	}

	clock.Advance(2 * time.Minute)
	third, _ := svc.Get(context.Background(), CategoryWeather)
	if weather.calls.Load() != 2 {
		t.Fatalf("expected a refresh after the window, got %d aggregations", weather.calls.Load())
	}
	if !third.CapturedAt().After(first.CapturedAt()) {
		t.Fatalf("expected a newer snapshot after refresh")
	}
}

func TestServicePerCategoryWindow(t *testing.T) {
	clock := &testClock{now: fixedNow}
	steam := &countingAggregator{category: CategorySteam, configured: true, now: clock.Now}
	svc := newTestService(clock, steam)

	if svc.Window(CategorySteam) != 10*time.Minute || svc.Window(CategoryStatus) != DefaultWindow {
		t.Fatalf("unexpected windows %v / %v", svc.Window(CategorySteam), svc.Window(CategoryStatus))
	}

	_, _ = svc.Get(context.Background(), CategorySteam)
	clock.Advance(7 * time.Minute)
	_, _ = svc.Get(context.Background(), CategorySteam)

	if steam.calls.Load() != 1 {
		t.Fatalf("expected steam to stay cached for 10m, got %d aggregations", steam.calls.Load())
	}
}

func TestServiceUnconfiguredIsNeverCached(t *testing.T) {
	clock := &testClock{now: fixedNow}
	steam := &countingAggregator{category: CategorySteam, configured: false, now: clock.Now}
	svc := newTestService(clock, steam)

	for i := 0; i < 3; i++ {
		snap, err := svc.Get(context.Background(), CategorySteam)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.Health() != HealthUnconfigured {
			t.Fatalf("expected unconfigured snapshot, got %s", snap.Health())
		}
	}
	if !svc.IsStale(CategorySteam) {
		t.Fatalf("unconfigured category must not be stored")
	}
}

func TestServiceUnknownCategory(t *testing.T) {
	svc := newTestService(&testClock{now: fixedNow})

	if _, err := svc.Get(context.Background(), "visitors"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if err := svc.MarkRefreshed("visitors"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := svc.Freshness("visitors"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestServiceFreshnessAndMarkRefreshed(t *testing.T) {
	clock := &testClock{now: fixedNow}
	status := &countingAggregator{category: CategoryStatus, configured: true, now: clock.Now}
	svc := newTestService(clock, status)

	f, err := svc.Freshness(CategoryStatus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Stale || !f.RefreshedAt.IsZero() {
		t.Fatalf("expected stale, never-refreshed category, got %+v", f)
	}

	_, _ = svc.Get(context.Background(), CategoryStatus)
	clock.Advance(6 * time.Minute)
	if !svc.IsStale(CategoryStatus) {
		t.Fatalf("expected stale category after window")
	}

	if err := svc.MarkRefreshed(CategoryStatus); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, _ = svc.Freshness(CategoryStatus)
	if f.Stale || !f.RefreshedAt.Equal(clock.Now()) || f.Window != 300 {
		t.Fatalf("unexpected freshness after MarkRefreshed: %+v", f)
	}

	_, _ = svc.Get(context.Background(), CategoryStatus)
	if status.calls.Load() != 1 {
		t.Fatalf("expected marked category to serve the old snapshot, got %d aggregations", status.calls.Load())
	}
}

func TestServiceRefreshStale(t *testing.T) {
	clock := &testClock{now: fixedNow}
	weather := &countingAggregator{category: CategoryWeather, configured: true, now: clock.Now}
	steam := &countingAggregator{category: CategorySteam, configured: true, now: clock.Now}
	bluesky := &countingAggregator{category: CategoryBluesky, configured: false, now: clock.Now}
	obs := &durationObserver{calls: map[string]int{}}

	st := store.NewMemoryStore[Snapshot](store.WithClock[Snapshot](clock.Now))
	svc := NewService(st, []Aggregator{weather, steam, bluesky},
		WithDefaultWindow(5*time.Minute),
		WithWindows(map[Category]time.Duration{CategorySteam: 10 * time.Minute}),
		WithObserver(obs),
	)

	got := svc.RefreshStale(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected weather and steam to refresh, got %v", got)
	}

	clock.Advance(6 * time.Minute)
	got = svc.RefreshStale(context.Background())
	if len(got) != 1 || got[0] != CategoryWeather {
		t.Fatalf("expected only weather to refresh, got %v", got)
	}

	if bluesky.calls.Load() != 0 {
		t.Fatalf("unconfigured category should not be warmed")
	}
	if obs.calls["weather"] != 2 || obs.calls["steam"] != 1 {
		t.Fatalf("unexpected observed durations %v", obs.calls)
	}
}

func TestServiceCategoriesSorted(t *testing.T) {
	clock := &testClock{now: fixedNow}
	svc := newTestService(clock,
		&countingAggregator{category: CategoryWeather, now: clock.Now},
		&countingAggregator{category: CategoryBluesky, now: clock.Now},
		&countingAggregator{category: CategorySteam, now: clock.Now},
	)

	got := svc.Categories()
	want := []Category{CategoryBluesky, CategorySteam, CategoryWeather}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
