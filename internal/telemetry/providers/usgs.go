package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
	"github.com/sony/gobreaker"
)

const DefaultQuakeURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// QuakeProvider fetches today's significant seismic events from the USGS
// FDSN event service, newest first.
type QuakeProvider struct {
	name         string
	baseURL      string
	minMagnitude float64
	limit        int
	now          func() time.Time
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
}

func NewQuakeProvider(client *http.Client, baseURL string) *QuakeProvider {
	if baseURL == "" {
		baseURL = DefaultQuakeURL
	}
	return &QuakeProvider{
		name:         "usgs",
		baseURL:      baseURL,
		minMagnitude: 4,
		limit:        5,
		now:          time.Now,
		httpCfg:      HTTPClientConfig{Client: client},
		circuit:      newCircuitBreaker("usgs"),
	}
}

func (p *QuakeProvider) Name() string {
	return p.name
}

func (p *QuakeProvider) Fetch(ctx context.Context) ([]telemetry.QuakeFeature, error) {
	values := url.Values{}
	values.Set("format", "geojson")
	values.Set("starttime", p.now().UTC().Format("2006-01-02"))
	values.Set("minmagnitude", strconv.FormatFloat(p.minMagnitude, 'f', -1, 64))
	values.Set("limit", strconv.Itoa(p.limit))
	values.Set("orderby", "time")

	var payload struct {
		Features *[]telemetry.QuakeFeature `json:"features"`
	}
	if _, err := getInto(ctx, p.httpCfg, p.circuit, getRequest(p.baseURL+"?"+values.Encode()), &payload); err != nil {
		return nil, err
	}
	if payload.Features == nil {
		return nil, fmt.Errorf("%w: missing features", errMalformedBody)
	}
	return *payload.Features, nil
}
