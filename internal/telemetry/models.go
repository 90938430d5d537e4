package telemetry

import (
	"encoding/json"
	"time"
)

// Category names one cached aggregation.
type Category string

const (
	CategoryWeather Category = "weather"
	CategorySteam   Category = "steam"
	CategoryStatus  Category = "status"
	CategoryBluesky Category = "bluesky"
)

// Health summarises how many providers contributed to a snapshot.
type Health string

const (
	HealthNominal      Health = "nominal"
	HealthPartial      Health = "partial"
	HealthDegraded     Health = "degraded"
	HealthUnconfigured Health = "unconfigured"
)

// SourceStatus is the per-provider outcome recorded in a snapshot.
type SourceStatus string

const (
	SourceOK            SourceStatus = "ok"
	SourceFailed        SourceStatus = "failed"
	SourceNotConfigured SourceStatus = "not_configured"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Location is the single coordinate the environment providers are queried for.
type Location struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// Snapshot is the merged, point-in-time result of one aggregation pass.
type Snapshot interface {
	Category() Category
	Health() Health
	CapturedAt() time.Time
}

// EnvironmentSnapshot merges weather, air quality and seismic data.
type EnvironmentSnapshot struct {
	Weather   *WeatherReport          `json:"weather"`
	Air       *AirReport              `json:"air"`
	Quakes    []QuakeFeature          `json:"quakes"`
	Condition Condition               `json:"condition,omitempty"`
	News      []string                `json:"news"`
	Sources   map[string]SourceStatus `json:"sources"`
	Status    Health                  `json:"health"`
	Error     bool                    `json:"error,omitempty"`
	FetchedAt int64                   `json:"fetchedAt"`
}

func (s EnvironmentSnapshot) Category() Category    { return CategoryWeather }
func (s EnvironmentSnapshot) Health() Health        { return s.Status }
func (s EnvironmentSnapshot) CapturedAt() time.Time { return time.UnixMilli(s.FetchedAt) }

// ActivitySnapshot carries gaming activity for one subject.
type ActivitySnapshot struct {
	Games     []Game                  `json:"games"`
	Profile   *Profile                `json:"profile"`
	Source    string                  `json:"source,omitempty"`
	Sources   map[string]SourceStatus `json:"sources"`
	Status    Health                  `json:"health"`
	Error     string                  `json:"error,omitempty"`
	FetchedAt int64                   `json:"fetchedAt"`
}

func (s ActivitySnapshot) Category() Category    { return CategorySteam }
func (s ActivitySnapshot) Health() Health        { return s.Status }
func (s ActivitySnapshot) CapturedAt() time.Time { return time.UnixMilli(s.FetchedAt) }

// FeedSnapshot passes one upstream JSON document through untouched.
type FeedSnapshot struct {
	Kind      Category                `json:"-"`
	Data      json.RawMessage         `json:"data"`
	Sources   map[string]SourceStatus `json:"sources"`
	Status    Health                  `json:"health"`
	Error     bool                    `json:"error,omitempty"`
	FetchedAt int64                   `json:"fetchedAt"`
}

func (s FeedSnapshot) Category() Category    { return s.Kind }
func (s FeedSnapshot) Health() Health        { return s.Status }
func (s FeedSnapshot) CapturedAt() time.Time { return time.UnixMilli(s.FetchedAt) }

// WeatherReport is the forecast payload. Current is decoded for alert rules;
// Raw is what callers receive.
type WeatherReport struct {
	Current WeatherCurrent
	Raw     json.RawMessage
}

// WeatherCurrent holds the current-conditions fields the alert rules read.
type WeatherCurrent struct {
	Temperature     float64  `json:"temperature_2m"`
	Humidity        *float64 `json:"relative_humidity_2m,omitempty"`
	SurfacePressure *float64 `json:"surface_pressure,omitempty"`
	Precipitation   *float64 `json:"precipitation,omitempty"`
	WeatherCode     *int     `json:"weather_code,omitempty"`
	WindSpeed       *float64 `json:"wind_speed_10m,omitempty"`
}

func (r WeatherReport) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(struct {
		Current WeatherCurrent `json:"current"`
	}{r.Current})
}

// AirReport is the air-quality payload.
type AirReport struct {
	Current AirCurrent
	Raw     json.RawMessage
}

// AirCurrent holds the air-quality fields the alert rules read.
type AirCurrent struct {
	USAQI *float64 `json:"us_aqi,omitempty"`
	PM25  *float64 `json:"pm2_5,omitempty"`
	PM10  *float64 `json:"pm10,omitempty"`
}

func (r AirReport) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(struct {
		Current AirCurrent `json:"current"`
	}{r.Current})
}

// QuakeFeature is one GeoJSON seismic event.
type QuakeFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Properties QuakeProperties `json:"properties"`
	Geometry   QuakeGeometry   `json:"geometry"`
}

type QuakeProperties struct {
	Mag   float64 `json:"mag"`
	Place string  `json:"place"`
	Time  int64   `json:"time"`
	URL   string  `json:"url,omitempty"`
	Title string  `json:"title,omitempty"`
}

type QuakeGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Game is one entry of a gaming-activity list.
type Game struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	Playtime2Weeks  int    `json:"playtime_2weeks,omitempty"`
	PlaytimeForever int    `json:"playtime_forever"`
	ImgIconURL      string `json:"img_icon_url,omitempty"`
}

// Profile is the public summary of the activity subject.
type Profile struct {
	SteamID       string `json:"steamid"`
	PersonaName   string `json:"personaname"`
	ProfileURL    string `json:"profileurl"`
	Avatar        string `json:"avatar,omitempty"`
	AvatarFull    string `json:"avatarfull,omitempty"`
	PersonaState  int    `json:"personastate"`
	GameExtraInfo string `json:"gameextrainfo,omitempty"`
	LastLogoff    int64  `json:"lastlogoff,omitempty"`
}

// healthOf folds per-provider statuses into one Health value.
func healthOf(sources map[string]SourceStatus) Health {
	var ok int
	for _, st := range sources {
		if st == SourceOK {
			ok++
		}
	}
	switch {
	case len(sources) == 0 || ok == 0:
		return HealthDegraded
	case ok == len(sources):
		return HealthNominal
	default:
		return HealthPartial
	}
}
