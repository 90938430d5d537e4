package telemetry

import (
	"context"
	"sort"
)

// FallbackChain runs a primary query and, only when it succeeds with an empty
// list, a secondary query whose result is filtered, sorted and truncated.
type FallbackChain[T any] struct {
	Primary  func(ctx context.Context) ([]T, error)
	Fallback func(ctx context.Context) ([]T, error)

	// Keep filters fallback items; nil keeps everything.
	Keep func(T) bool
	// Less orders fallback items; nil keeps upstream order.
	Less func(a, b T) bool
	// Limit caps the fallback result; zero means no cap.
	Limit int
}

// Run returns the items and whether they came from the fallback query.
func (c FallbackChain[T]) Run(ctx context.Context) ([]T, bool, error) {
	items, err := c.Primary(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(items) > 0 || c.Fallback == nil {
		return items, false, nil
	}

	fallback, err := c.Fallback(ctx)
	if err != nil {
		return nil, true, err
	}

	kept := make([]T, 0, len(fallback))
	for _, it := range fallback {
		if c.Keep == nil || c.Keep(it) {
			kept = append(kept, it)
		}
	}
	if c.Less != nil {
		sort.SliceStable(kept, func(i, j int) bool { return c.Less(kept[i], kept[j]) })
	}
	if c.Limit > 0 && len(kept) > c.Limit {
		kept = kept[:c.Limit]
	}
	return kept, true, nil
}
