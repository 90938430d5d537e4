package telemetry

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var errEmptyPayload = errors.New("provider returned an empty payload")

// AggregatorOption configures the aggregators.
type AggregatorOption func(*aggregatorOptions)

type aggregatorOptions struct {
	now      func() time.Time
	recorder Recorder
}

// WithClock replaces time.Now for capture timestamps.
func WithClock(now func() time.Time) AggregatorOption {
	return func(o *aggregatorOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRecorder reports every provider outcome to r.
func WithRecorder(r Recorder) AggregatorOption {
	return func(o *aggregatorOptions) {
		o.recorder = r
	}
}

func newAggregatorOptions(opts []AggregatorOption) aggregatorOptions {
	o := aggregatorOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o aggregatorOptions) record(provider string, status SourceStatus) {
	if o.recorder != nil {
		o.recorder.ProviderResult(provider, status)
	}
}

// EnvironmentAggregator merges weather, air-quality and seismic providers into
// one EnvironmentSnapshot and derives its alert list.
type EnvironmentAggregator struct {
	weather Source[*WeatherReport]
	air     Source[*AirReport]
	quakes  Source[[]QuakeFeature]
	opts    aggregatorOptions
}

// NewEnvironmentAggregator creates an EnvironmentAggregator. Any source may be
// nil; it is then reported as not configured.
func NewEnvironmentAggregator(
	weather Source[*WeatherReport],
	air Source[*AirReport],
	quakes Source[[]QuakeFeature],
	opts ...AggregatorOption,
) *EnvironmentAggregator {
	return &EnvironmentAggregator{
		weather: weather,
		air:     air,
		quakes:  quakes,
		opts:    newAggregatorOptions(opts),
	}
}

func (a *EnvironmentAggregator) Category() Category { return CategoryWeather }

// Configured is always true: the environment providers need no credential.
func (a *EnvironmentAggregator) Configured() bool { return true }

func (a *EnvironmentAggregator) Aggregate(ctx context.Context) Snapshot {
	return a.Collect(ctx)
}

// Collect fetches all providers concurrently, waits for every one of them to
// settle and merges whatever succeeded. It never fails.
func (a *EnvironmentAggregator) Collect(ctx context.Context) (snap EnvironmentSnapshot) {
	now := a.opts.now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: environment aggregation failed: %v", r)
			snap = degradedEnvironment(now, nil)
		}
	}()

	var (
		wg      sync.WaitGroup
		weather Outcome[*WeatherReport]
		air     Outcome[*AirReport]
		quakes  Outcome[[]QuakeFeature]
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		weather = fetchSource(ctx, a.weather)
		if weather.OK() && weather.Value == nil {
			weather.Err = errEmptyPayload
		}
	}()
	go func() {
		defer wg.Done()
		air = fetchSource(ctx, a.air)
		if air.OK() && air.Value == nil {
			air.Err = errEmptyPayload
		}
	}()
	go func() {
		defer wg.Done()
		quakes = fetchSource(ctx, a.quakes)
	}()
	wg.Wait()

	sources := map[string]SourceStatus{
		"weather": a.report(a.weather, weather.Err),
		"air":     a.report(a.air, air.Err),
		"quakes":  a.report(a.quakes, quakes.Err),
	}

	health := healthOf(sources)
	if health == HealthDegraded {
		log.Printf("no successful environment readings; returning degraded snapshot")
		return degradedEnvironment(now, sources)
	}

	snap = EnvironmentSnapshot{
		Quakes:    []QuakeFeature{},
		Sources:   sources,
		Status:    health,
		FetchedAt: now.UnixMilli(),
	}
	if weather.OK() {
		snap.Weather = weather.Value
		snap.Condition = ConditionFromWeatherCode(weather.Value.Current.WeatherCode)
	}
	if air.OK() {
		snap.Air = air.Value
	}
	if quakes.OK() && quakes.Value != nil {
		snap.Quakes = quakes.Value
	}
	snap.News = DeriveAlerts(snap.Weather, snap.Air, snap.Quakes)

	return snap
}

func (a *EnvironmentAggregator) report(src interface{ Name() string }, err error) SourceStatus {
	status := Outcome[struct{}]{Err: err}.Status()
	name := "unknown"
	if src != nil {
		name = src.Name()
	}
	if err != nil {
		log.Printf("provider %s fetch failed: %v", name, err)
	}
	a.opts.record(name, status)
	return status
}

// degradedEnvironment is the snapshot returned when nothing could be fetched.
func degradedEnvironment(now time.Time, sources map[string]SourceStatus) EnvironmentSnapshot {
	if sources == nil {
		sources = map[string]SourceStatus{
			"weather": SourceFailed,
			"air":     SourceFailed,
			"quakes":  SourceFailed,
		}
	}
	return EnvironmentSnapshot{
		Quakes:    []QuakeFeature{},
		News:      []string{alertDataFetchError},
		Sources:   sources,
		Status:    HealthDegraded,
		Error:     true,
		FetchedAt: now.UnixMilli(),
	}
}

// fetchSource settles one provider call; a nil source is not configured.
func fetchSource[T any](ctx context.Context, src Source[T]) Outcome[T] {
	if src == nil {
		return Outcome[T]{Err: ErrNotConfigured}
	}
	return settle(ctx, src.Name(), src.Fetch)
}

// ConditionFromWeatherCode maps a WMO weather code (simplified).
func ConditionFromWeatherCode(code *int) Condition {
	if code == nil {
		return ConditionUnknown
	}
	switch c := *code; {
	case c == 0:
		return ConditionClear
	case c >= 1 && c <= 3:
		return ConditionCloudy
	case c == 45 || c == 48:
		return ConditionMist
	case (c >= 51 && c <= 67) || (c >= 80 && c <= 82):
		return ConditionRain
	case (c >= 71 && c <= 77) || c == 85 || c == 86:
		return ConditionSnow
	case c >= 95:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}
