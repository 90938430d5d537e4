package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cosinefox/telemetry-aggregation/internal/store"
)

// DefaultWindow is the freshness window used for categories without their own.
const DefaultWindow = 5 * time.Minute

// ErrUnknownCategory is returned for categories no aggregator is registered for.
var ErrUnknownCategory = errors.New("unknown category")

// Aggregator produces the snapshot for one category.
type Aggregator interface {
	Category() Category
	Configured() bool
	Aggregate(ctx context.Context) Snapshot
}

// Observer is told how long each aggregation took.
type Observer interface {
	AggregationDuration(category string, d time.Duration)
}

// Freshness describes the cache state of one category.
type Freshness struct {
	Category    Category  `json:"category"`
	Stale       bool      `json:"stale"`
	RefreshedAt time.Time `json:"refreshedAt"`
	Window      float64   `json:"windowSeconds"`
}

// Service routes category requests through the TTL store to the aggregators.
type Service struct {
	store       *store.MemoryStore[Snapshot]
	aggregators map[Category]Aggregator
	windows     map[Category]time.Duration
	fallback    time.Duration
	observer    Observer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWindows sets per-category freshness windows.
func WithWindows(windows map[Category]time.Duration) ServiceOption {
	return func(s *Service) {
		for c, w := range windows {
			s.windows[c] = w
		}
	}
}

// WithDefaultWindow sets the window for categories without their own.
func WithDefaultWindow(w time.Duration) ServiceOption {
	return func(s *Service) {
		s.fallback = w
	}
}

// WithObserver reports aggregation durations.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// NewService creates a new Service.
func NewService(st *store.MemoryStore[Snapshot], aggregators []Aggregator, opts ...ServiceOption) *Service {
	s := &Service{
		store:       st,
		aggregators: make(map[Category]Aggregator, len(aggregators)),
		windows:     make(map[Category]time.Duration),
		fallback:    DefaultWindow,
	}
	for _, a := range aggregators {
		s.aggregators[a.Category()] = a
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the registered categories in a stable order.
func (s *Service) Categories() []Category {
	out := make([]Category, 0, len(s.aggregators))
	for c := range s.aggregators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Window returns the freshness window for category.
func (s *Service) Window(category Category) time.Duration {
	if w, ok := s.windows[category]; ok {
		return w
	}
	return s.fallback
}

// Get returns the cached snapshot for category, refreshing it when stale.
// Unconfigured categories are answered directly and never cached.
func (s *Service) Get(ctx context.Context, category Category) (Snapshot, error) {
	a, ok := s.aggregators[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if !a.Configured() {
		log.Printf("INFO: category %s requested but not configured", category)
		return a.Aggregate(ctx), nil
	}

	return s.store.GetOrRefresh(ctx, string(category), s.Window(category), s.producer(a)), nil
}

// Refresh runs the aggregator for category unconditionally and stores the result.
func (s *Service) Refresh(ctx context.Context, category Category) (Snapshot, error) {
	a, ok := s.aggregators[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	snap := s.producer(a)(ctx)
	if a.Configured() {
		s.store.Put(string(category), snap)
	}
	return snap, nil
}

// RefreshStale refreshes every configured category whose entry is stale and
// returns the categories it refreshed.
func (s *Service) RefreshStale(ctx context.Context) []Category {
	var refreshed []Category
	for _, c := range s.Categories() {
		if !s.aggregators[c].Configured() || !s.IsStale(c) {
			continue
		}
		if _, err := s.Refresh(ctx, c); err != nil {
			log.Printf("ERROR: refresh of %s failed: %v", c, err)
			continue
		}
		refreshed = append(refreshed, c)
	}
	return refreshed
}

// IsStale reports whether category needs a refresh. It has no side effects.
func (s *Service) IsStale(category Category) bool {
	return s.store.IsStale(string(category), s.Window(category))
}

// MarkRefreshed stamps category as refreshed without replacing its snapshot.
func (s *Service) MarkRefreshed(category Category) error {
	if _, ok := s.aggregators[category]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	s.store.MarkRefreshed(string(category))
	return nil
}

// Freshness reports the cache state of category.
func (s *Service) Freshness(category Category) (Freshness, error) {
	if _, ok := s.aggregators[category]; !ok {
		return Freshness{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return Freshness{
		Category:    category,
		Stale:       s.IsStale(category),
		RefreshedAt: s.store.RefreshedAt(string(category)).UTC(),
		Window:      s.Window(category).Seconds(),
	}, nil
}

func (s *Service) producer(a Aggregator) store.Producer[Snapshot] {
	return func(ctx context.Context) Snapshot {
		start := time.Now()
		snap := a.Aggregate(ctx)
		if s.observer != nil {
			s.observer.AggregationDuration(string(a.Category()), time.Since(start))
		}
		log.Printf("DEBUG: aggregated %s with health %s", a.Category(), snap.Health())
		return snap
	}
}
