package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	heatThresholdC      = 33
	lowPressureHpa      = 1000
	hazeAQIThreshold    = 100
	alertNominal        = "ALL SYSTEMS NOMINAL. MONITORING..."
	alertDataFetchError = "DATA FETCH ERROR"
)

// DeriveAlerts runs the fixed, ordered threshold rules against the merged
// payloads. A nil weather report disables the weather and air-quality rules.
func DeriveAlerts(weather *WeatherReport, air *AirReport, quakes []QuakeFeature) []string {
	var news []string

	if weather != nil {
		cur := weather.Current
		if cur.Temperature > heatThresholdC {
			news = append(news, fmt.Sprintf("HEAT ALERT: SURFACE TEMP %s°C", formatNumber(cur.Temperature)))
		} else {
			news = append(news, fmt.Sprintf("AMBIENT TEMP: %s°C", formatNumber(cur.Temperature)))
		}

		if cur.SurfacePressure != nil && *cur.SurfacePressure < lowPressureHpa {
			news = append(news, fmt.Sprintf("LOW PRESSURE SYSTEM DETECTED (%shPa)", formatNumber(*cur.SurfacePressure)))
		}
		if cur.Precipitation != nil && *cur.Precipitation > 0 {
			news = append(news, fmt.Sprintf("PRECIPITATION DETECTED: %smm/h", formatNumber(*cur.Precipitation)))
		}
		if air != nil && air.Current.USAQI != nil && *air.Current.USAQI > hazeAQIThreshold {
			news = append(news, fmt.Sprintf("HAZE WARNING: AQI %s", formatNumber(*air.Current.USAQI)))
		}
	}

	// Features are ordered newest first.
	if len(quakes) > 0 {
		q := quakes[0].Properties
		news = append(news, fmt.Sprintf("SEISMIC EVENT: M%s %s", formatNumber(q.Mag), strings.ToUpper(q.Place)))
	}

	if len(news) == 0 {
		news = append(news, alertNominal)
	}
	return news
}

// formatNumber renders v in its shortest form: 35, 33.5, 995.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
