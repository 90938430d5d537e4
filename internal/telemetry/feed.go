package telemetry

import (
	"context"
	"encoding/json"
	"log"
)

// FeedAggregator serves one upstream JSON document as-is.
type FeedAggregator struct {
	category Category
	src      Source[json.RawMessage]
	opts     aggregatorOptions
}

// NewFeedAggregator creates a FeedAggregator cached under category. A nil src
// makes the category unconfigured.
func NewFeedAggregator(category Category, src Source[json.RawMessage], opts ...AggregatorOption) *FeedAggregator {
	return &FeedAggregator{
		category: category,
		src:      src,
		opts:     newAggregatorOptions(opts),
	}
}

func (a *FeedAggregator) Category() Category { return a.category }

func (a *FeedAggregator) Configured() bool { return a.src != nil }

func (a *FeedAggregator) Aggregate(ctx context.Context) Snapshot {
	return a.Collect(ctx)
}

// Collect fetches the feed once and wraps it in a FeedSnapshot.
func (a *FeedAggregator) Collect(ctx context.Context) FeedSnapshot {
	now := a.opts.now()
	key := string(a.category)

	if !a.Configured() {
		return FeedSnapshot{
			Kind:      a.category,
			Sources:   map[string]SourceStatus{key: SourceNotConfigured},
			Status:    HealthUnconfigured,
			Error:     true,
			FetchedAt: now.UnixMilli(),
		}
	}

	out := settle(ctx, a.src.Name(), a.src.Fetch)
	if out.OK() && len(out.Value) == 0 {
		out.Err = errEmptyPayload
	}

	status := out.Status()
	a.opts.record(a.src.Name(), status)

	snap := FeedSnapshot{
		Kind:      a.category,
		Sources:   map[string]SourceStatus{key: status},
		FetchedAt: now.UnixMilli(),
	}
	if !out.OK() {
		log.Printf("ERROR: provider %s fetch failed: %v", a.src.Name(), out.Err)
		snap.Status = HealthDegraded
		snap.Error = true
		return snap
	}

	snap.Data = out.Value
	snap.Status = HealthNominal
	return snap
}
