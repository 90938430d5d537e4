package telemetry

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a provider whose credential or subject is
// missing. It is returned before any network call.
var ErrNotConfigured = errors.New("provider not configured")

// Source abstracts one upstream data provider returning a payload of type T.
type Source[T any] interface {
	Name() string
	Fetch(ctx context.Context) (T, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] struct {
	ProviderName string
	Func         func(ctx context.Context) (T, error)
}

func (f SourceFunc[T]) Name() string { return f.ProviderName }

func (f SourceFunc[T]) Fetch(ctx context.Context) (T, error) { return f.Func(ctx) }

// ActivitySource is the gaming-activity provider: a primary recent-activity
// query, an owned-items fallback and a profile lookup.
type ActivitySource interface {
	Name() string
	Configured() bool
	RecentGames(ctx context.Context) ([]Game, error)
	OwnedGames(ctx context.Context) ([]Game, error)
	Profile(ctx context.Context) (*Profile, error)
}

// Outcome is the settled result of one provider call: either Value or Err.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Status maps the outcome onto the status recorded in snapshots.
func (o Outcome[T]) Status() SourceStatus {
	switch {
	case o.Err == nil:
		return SourceOK
	case errors.Is(o.Err, ErrNotConfigured):
		return SourceNotConfigured
	default:
		return SourceFailed
	}
}

// Recorder receives per-provider outcomes; the metrics package implements it.
type Recorder interface {
	ProviderResult(provider string, status SourceStatus)
}

// settle runs fetch and converts a panic or error into a failed Outcome so the
// join step never needs failure handling.
func settle[T any](ctx context.Context, name string, fetch func(ctx context.Context) (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Err: errors.New(name + ": provider panicked")}
		}
	}()

	v, err := fetch(ctx)
	if err != nil {
		return Outcome[T]{Err: err}
	}
	return Outcome[T]{Value: v}
}
