package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
)

type AppConfig struct {
	Port string `env:"PORT" envDefault:"8080" validate:"required,numeric"`

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// CacheWindow is the freshness window for categories not listed in CacheWindows.
	CacheWindow time.Duration `env:"CACHE_WINDOW" envDefault:"5m"`
	// RawCacheWindows holds per-category overrides, e.g. "steam=10m,weather=5m".
	RawCacheWindows string `env:"CACHE_WINDOWS"`
	CacheWindows    map[telemetry.Category]time.Duration

	// WarmInterval enables the background cache warmer when positive.
	WarmInterval time.Duration `env:"WARM_INTERVAL" envDefault:"0s"`

	Latitude  float64 `env:"LOCATION_LAT"      envDefault:"4.359"    validate:"min=-90,max=90"`
	Longitude float64 `env:"LOCATION_LON"      envDefault:"100.9849" validate:"min=-180,max=180"`
	Timezone  string  `env:"LOCATION_TIMEZONE" envDefault:"Asia/Singapore"`

	SteamAPIKey     string  `env:"STEAM_API_KEY"`
	SteamID         string  `env:"STEAM_ID" validate:"omitempty,numeric,len=17"`
	SteamRatePerSec float64 `env:"STEAM_RATE_PER_SEC" envDefault:"1"`

	StatusCafeUser string `env:"STATUS_CAFE_USER"`
	BlueskyHandle  string `env:"BLUESKY_HANDLE"`

	// Upstream base URL overrides; empty means the provider default.
	ForecastURL   string `env:"OPENMETEO_FORECAST_URL" validate:"omitempty,url"`
	AirQualityURL string `env:"OPENMETEO_AIR_URL"      validate:"omitempty,url"`
	QuakeURL      string `env:"USGS_URL"               validate:"omitempty,url"`
	SteamURL      string `env:"STEAM_URL"              validate:"omitempty,url"`
	StatusCafeURL string `env:"STATUS_CAFE_URL"        validate:"omitempty,url"`
	BlueskyURL    string `env:"BLUESKY_URL"            validate:"omitempty,url"`
}

// Location returns the monitored coordinates.
func (c *AppConfig) Location() telemetry.Location {
	return telemetry.Location{Lat: c.Latitude, Lon: c.Longitude, Timezone: c.Timezone}
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive, got %s", cfg.HTTPTimeout)
	}
	if cfg.CacheWindow < 0 {
		return nil, fmt.Errorf("invalid CACHE_WINDOW: must not be negative, got %s", cfg.CacheWindow)
	}
	if cfg.WarmInterval < 0 {
		return nil, fmt.Errorf("invalid WARM_INTERVAL: must not be negative, got %s", cfg.WarmInterval)
	}

	windows, err := parseWindows(cfg.RawCacheWindows)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_WINDOWS: %w", err)
	}
	cfg.CacheWindows = windows

	return cfg, nil
}

// parseWindows reads "category=duration" pairs separated by commas.
func parseWindows(raw string) (map[telemetry.Category]time.Duration, error) {
	windows := make(map[telemetry.Category]time.Duration)
	if strings.TrimSpace(raw) == "" {
		return windows, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("expected category=duration, got %q", pair)
		}
		category := telemetry.Category(strings.ToLower(strings.TrimSpace(name)))
		if !knownCategory(category) {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("window for %s: %w", category, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("window for %s must not be negative", category)
		}
		windows[category] = d
	}
	return windows, nil
}

func knownCategory(c telemetry.Category) bool {
	switch c {
	case telemetry.CategoryWeather, telemetry.CategorySteam, telemetry.CategoryStatus, telemetry.CategoryBluesky:
		return true
	}
	return false
}
