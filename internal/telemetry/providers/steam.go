package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const DefaultSteamURL = "https://api.steampowered.com"

// SteamProvider implements telemetry.ActivitySource for the Steam Web API.
type SteamProvider struct {
	name    string
	apiKey  string
	steamID string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewSteamProvider creates a SteamProvider. perSecond <= 0 disables limiting.
func NewSteamProvider(client *http.Client, baseURL, apiKey, steamID string, perSecond float64) *SteamProvider {
	if baseURL == "" {
		baseURL = DefaultSteamURL
	}

	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 3)
	}

	return &SteamProvider{
		name:    "steam",
		apiKey:  apiKey,
		steamID: steamID,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Limiter: limiter,
		},
		circuit: newCircuitBreaker("steam"),
	}
}

func (p *SteamProvider) Name() string {
	return p.name
}

// SteamID returns the subject this provider reports on.
func (p *SteamProvider) SteamID() string {
	return p.steamID
}

func (p *SteamProvider) Configured() bool {
	return p.apiKey != "" && p.steamID != ""
}

// RecentGames returns up to ten games played in the last two weeks.
func (p *SteamProvider) RecentGames(ctx context.Context) ([]telemetry.Game, error) {
	var payload struct {
		Response struct {
			Games []telemetry.Game `json:"games"`
		} `json:"response"`
	}
	err := p.get(ctx, "/IPlayerService/GetRecentlyPlayedGames/v1/", url.Values{
		"steamid": {p.steamID},
		"count":   {"10"},
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.Response.Games, nil
}

// OwnedGames returns every game in the subject's library.
func (p *SteamProvider) OwnedGames(ctx context.Context) ([]telemetry.Game, error) {
	var payload struct {
		Response struct {
			Games []telemetry.Game `json:"games"`
		} `json:"response"`
	}
	err := p.get(ctx, "/IPlayerService/GetOwnedGames/v1/", url.Values{
		"steamid":                   {p.steamID},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.Response.Games, nil
}

// Profile returns the subject's player summary, or nil if Steam has none.
func (p *SteamProvider) Profile(ctx context.Context) (*telemetry.Profile, error) {
	var payload struct {
		Response struct {
			Players []telemetry.Profile `json:"players"`
		} `json:"response"`
	}
	err := p.get(ctx, "/ISteamUser/GetPlayerSummaries/v2/", url.Values{
		"steamids": {p.steamID},
	}, &payload)
	if err != nil {
		return nil, err
	}
	if len(payload.Response.Players) == 0 {
		return nil, nil
	}
	profile := payload.Response.Players[0]
	return &profile, nil
}

func (p *SteamProvider) get(ctx context.Context, path string, values url.Values, v any) error {
	if !p.Configured() {
		return fmt.Errorf("steam: %w", telemetry.ErrNotConfigured)
	}

	values.Set("key", p.apiKey)
	u := p.baseURL + path + "?" + values.Encode()

	if _, err := getInto(ctx, p.httpCfg, p.circuit, getRequest(u), v); err != nil {
		return fmt.Errorf("steam %s: %w", path, redactURL(err))
	}
	return nil
}

// redactURL drops the request URL, which carries the API key, from transport
// errors.
func redactURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
