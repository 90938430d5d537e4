package telemetry

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	topOwnedGames = 5

	activityNotConfigured = "Steam API not configured"
	activityFetchFailed   = "Failed to fetch Steam data"

	gamesFromRecent = "recent"
	gamesFromOwned  = "owned"
)

// ActivityAggregator builds the gaming-activity snapshot: recent games with an
// owned-games fallback, plus the subject's profile.
type ActivityAggregator struct {
	src  ActivitySource
	opts aggregatorOptions
}

// NewActivityAggregator creates an ActivityAggregator for src.
func NewActivityAggregator(src ActivitySource, opts ...AggregatorOption) *ActivityAggregator {
	return &ActivityAggregator{
		src:  src,
		opts: newAggregatorOptions(opts),
	}
}

func (a *ActivityAggregator) Category() Category { return CategorySteam }

func (a *ActivityAggregator) Configured() bool {
	return a.src != nil && a.src.Configured()
}

func (a *ActivityAggregator) Aggregate(ctx context.Context) Snapshot {
	return a.Collect(ctx)
}

type gameList struct {
	games    []Game
	fallback bool
}

// Collect queries games and profile concurrently and merges them. A missing
// credential short-circuits before any network call.
func (a *ActivityAggregator) Collect(ctx context.Context) (snap ActivitySnapshot) {
	now := a.opts.now()

	if !a.Configured() {
		return ActivitySnapshot{
			Games: []Game{},
			Sources: map[string]SourceStatus{
				"games":   SourceNotConfigured,
				"profile": SourceNotConfigured,
			},
			Status:    HealthUnconfigured,
			Error:     activityNotConfigured,
			FetchedAt: now.UnixMilli(),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: activity aggregation failed: %v", r)
			snap = degradedActivity(now, nil)
		}
	}()

	chain := FallbackChain[Game]{
		Primary:  a.src.RecentGames,
		Fallback: a.src.OwnedGames,
		Keep:     func(g Game) bool { return g.PlaytimeForever > 0 },
		Less:     func(x, y Game) bool { return x.PlaytimeForever > y.PlaytimeForever },
		Limit:    topOwnedGames,
	}

	var (
		wg      sync.WaitGroup
		games   Outcome[gameList]
		profile Outcome[*Profile]
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		games = settle(ctx, a.src.Name(), func(ctx context.Context) (gameList, error) {
			list, fallback, err := chain.Run(ctx)
			return gameList{games: list, fallback: fallback}, err
		})
	}()
	go func() {
		defer wg.Done()
		profile = settle(ctx, a.src.Name(), a.src.Profile)
	}()
	wg.Wait()

	sources := map[string]SourceStatus{
		"games":   a.report("games", games.Err),
		"profile": a.report("profile", profile.Err),
	}

	health := healthOf(sources)
	if health == HealthDegraded {
		return degradedActivity(now, sources)
	}

	snap = ActivitySnapshot{
		Games:     []Game{},
		Sources:   sources,
		Status:    health,
		FetchedAt: now.UnixMilli(),
	}
	if games.OK() {
		if games.Value.games != nil {
			snap.Games = games.Value.games
		}
		snap.Source = gamesFromRecent
		if games.Value.fallback {
			snap.Source = gamesFromOwned
		}
	}
	if profile.OK() {
		snap.Profile = profile.Value
	}
	return snap
}

func (a *ActivityAggregator) report(query string, err error) SourceStatus {
	status := Outcome[struct{}]{Err: err}.Status()
	if err != nil {
		log.Printf("provider %s %s query failed: %v", a.src.Name(), query, err)
	}
	a.opts.record(a.src.Name()+"_"+query, status)
	return status
}

func degradedActivity(now time.Time, sources map[string]SourceStatus) ActivitySnapshot {
	if sources == nil {
		sources = map[string]SourceStatus{
			"games":   SourceFailed,
			"profile": SourceFailed,
		}
	}
	return ActivitySnapshot{
		Games:     []Game{},
		Sources:   sources,
		Status:    HealthDegraded,
		Error:     activityFetchFailed,
		FetchedAt: now.UnixMilli(),
	}
}
