package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
	"github.com/sony/gobreaker"
)

const (
	DefaultForecastURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
)

var forecastCurrentFields = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"apparent_temperature",
	"is_day",
	"precipitation",
	"rain",
	"showers",
	"snowfall",
	"weather_code",
	"cloud_cover",
	"pressure_msl",
	"surface_pressure",
	"wind_speed_10m",
	"wind_direction_10m",
	"wind_gusts_10m",
}

var forecastHourlyFields = []string{
	"temperature_2m", "relative_humidity_2m", "dew_point_2m", "apparent_temperature",
	"precipitation_probability", "precipitation", "rain", "showers", "snowfall", "snow_depth",
	"weather_code", "pressure_msl", "surface_pressure",
	"cloud_cover", "cloud_cover_low", "cloud_cover_mid", "cloud_cover_high",
	"visibility", "evapotranspiration", "et0_fao_evapotranspiration", "vapour_pressure_deficit",
	"wind_speed_10m", "wind_speed_80m", "wind_speed_120m", "wind_speed_180m",
	"wind_direction_10m", "wind_direction_80m", "wind_direction_120m", "wind_direction_180m",
	"wind_gusts_10m", "temperature_80m", "temperature_120m", "temperature_180m",
	"soil_temperature_0cm", "soil_temperature_6cm", "soil_temperature_18cm", "soil_temperature_54cm",
	"soil_moisture_0_to_1cm", "soil_moisture_1_to_3cm", "soil_moisture_3_to_9cm",
	"soil_moisture_9_to_27cm", "soil_moisture_27_to_81cm",
	"uv_index", "uv_index_clear_sky", "is_day", "sunshine_duration",
	"wet_bulb_temperature_2m", "total_column_integrated_water_vapour",
	"cape", "lifted_index", "convective_inhibition", "freezing_level_height", "boundary_layer_height",
	"shortwave_radiation", "direct_radiation", "diffuse_radiation", "direct_normal_irradiance",
	"global_tilted_irradiance", "terrestrial_radiation",
	"shortwave_radiation_instant", "direct_radiation_instant", "diffuse_radiation_instant",
	"direct_normal_irradiance_instant", "global_tilted_irradiance_instant", "terrestrial_radiation_instant",
	"temperature_600hPa", "relative_humidity_600hPa", "cloud_cover_600hPa",
	"wind_speed_600hPa", "wind_direction_600hPa", "geopotential_height_600hPa",
}

var airQualityFields = []string{
	"us_aqi",
	"pm10",
	"pm2_5",
	"carbon_monoxide",
	"nitrogen_dioxide",
	"sulphur_dioxide",
	"ozone",
	"aerosol_optical_depth",
	"dust",
	"uv_index",
}

// ForecastProvider fetches current, hourly and daily weather from Open-Meteo.
type ForecastProvider struct {
	name    string
	baseURL string
	loc     telemetry.Location
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewForecastProvider(client *http.Client, baseURL string, loc telemetry.Location) *ForecastProvider {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &ForecastProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		loc:     loc,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *ForecastProvider) Name() string {
	return p.name
}

func (p *ForecastProvider) Fetch(ctx context.Context) (*telemetry.WeatherReport, error) {
	values := coordinates(p.loc)
	values.Set("past_days", "5")
	values.Set("models", "best_match")
	values.Set("current", strings.Join(forecastCurrentFields, ","))
	values.Set("hourly", strings.Join(forecastHourlyFields, ","))
	values.Set("daily", "uv_index_max")

	var payload struct {
		Current *telemetry.WeatherCurrent `json:"current"`
	}
	raw, err := getInto(ctx, p.httpCfg, p.circuit, getRequest(p.baseURL+"?"+values.Encode()), &payload)
	if err != nil {
		return nil, err
	}
	if payload.Current == nil {
		return nil, fmt.Errorf("%w: missing current conditions", errMalformedBody)
	}

	return &telemetry.WeatherReport{
		Current: *payload.Current,
		Raw:     raw,
	}, nil
}

// AirQualityProvider fetches current air-quality readings from Open-Meteo.
type AirQualityProvider struct {
	name    string
	baseURL string
	loc     telemetry.Location
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAirQualityProvider(client *http.Client, baseURL string, loc telemetry.Location) *AirQualityProvider {
	if baseURL == "" {
		baseURL = DefaultAirQualityURL
	}
	return &AirQualityProvider{
		name:    "openmeteo-air",
		baseURL: baseURL,
		loc:     loc,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("openmeteo-air"),
	}
}

func (p *AirQualityProvider) Name() string {
	return p.name
}

func (p *AirQualityProvider) Fetch(ctx context.Context) (*telemetry.AirReport, error) {
	values := coordinates(p.loc)
	values.Set("current", strings.Join(airQualityFields, ","))

	var payload struct {
		Current *telemetry.AirCurrent `json:"current"`
	}
	raw, err := getInto(ctx, p.httpCfg, p.circuit, getRequest(p.baseURL+"?"+values.Encode()), &payload)
	if err != nil {
		return nil, err
	}
	if payload.Current == nil {
		return nil, fmt.Errorf("%w: missing current readings", errMalformedBody)
	}

	return &telemetry.AirReport{
		Current: *payload.Current,
		Raw:     raw,
	}, nil
}

func coordinates(loc telemetry.Location) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	if loc.Timezone != "" {
		values.Set("timezone", loc.Timezone)
	}
	return values
}
