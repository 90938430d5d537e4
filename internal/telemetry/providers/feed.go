package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
)

const (
	DefaultStatusCafeURL = "https://status.cafe"
	DefaultBlueskyURL    = "https://public.api.bsky.app"
)

// FeedProvider fetches one JSON document and returns it unparsed.
type FeedProvider struct {
	name    string
	url     string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewFeedProvider creates a FeedProvider for an arbitrary JSON endpoint.
func NewFeedProvider(client *http.Client, name, endpoint string) *FeedProvider {
	return &FeedProvider{
		name:    name,
		url:     endpoint,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker(name),
	}
}

// NewStatusCafeProvider returns the status.cafe feed for user.
func NewStatusCafeProvider(client *http.Client, baseURL, user string) *FeedProvider {
	if baseURL == "" {
		baseURL = DefaultStatusCafeURL
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/users/" + url.PathEscape(user) + "/status.json"
	return NewFeedProvider(client, "statuscafe", endpoint)
}

// NewBlueskyProvider returns the public author feed for handle.
func NewBlueskyProvider(client *http.Client, baseURL, handle string) *FeedProvider {
	if baseURL == "" {
		baseURL = DefaultBlueskyURL
	}
	values := url.Values{}
	values.Set("actor", handle)
	values.Set("limit", "10")
	values.Set("filter", "posts_no_replies")
	endpoint := strings.TrimRight(baseURL, "/") + "/xrpc/app.bsky.feed.getAuthorFeed?" + values.Encode()
	return NewFeedProvider(client, "bluesky", endpoint)
}

func (p *FeedProvider) Name() string {
	return p.name
}

func (p *FeedProvider) Fetch(ctx context.Context) (json.RawMessage, error) {
	return getJSON(ctx, p.httpCfg, p.circuit, getRequest(p.url))
}
