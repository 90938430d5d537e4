package telemetry

import (
	"reflect"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestDeriveAlerts(t *testing.T) {
	quake := QuakeFeature{Properties: QuakeProperties{Mag: 5.1, Place: "12 km NE of Ranau, Malaysia"}}
	older := QuakeFeature{Properties: QuakeProperties{Mag: 6.3, Place: "off the coast"}}

	tests := []struct {
		name    string
		weather *WeatherReport
		air     *AirReport
		quakes  []QuakeFeature
		want    []string
	}{
		{
			name:    "heat and low pressure",
			weather: &WeatherReport{Current: WeatherCurrent{Temperature: 35, SurfacePressure: ptr(995.0), Precipitation: ptr(0.0)}},
			air:     &AirReport{Current: AirCurrent{USAQI: ptr(50.0)}},
			want:    []string{"HEAT ALERT: SURFACE TEMP 35°C", "LOW PRESSURE SYSTEM DETECTED (995hPa)"},
		},
		{
			name:    "ambient temperature before low pressure",
			weather: &WeatherReport{Current: WeatherCurrent{Temperature: 33, SurfacePressure: ptr(998.5)}},
			want:    []string{"AMBIENT TEMP: 33°C", "LOW PRESSURE SYSTEM DETECTED (998.5hPa)"},
		},
		{
			name:    "precipitation and haze",
			weather: &WeatherReport{Current: WeatherCurrent{Temperature: 28.4, SurfacePressure: ptr(1008.0), Precipitation: ptr(2.5)}},
			air:     &AirReport{Current: AirCurrent{USAQI: ptr(151.0)}},
			want:    []string{"AMBIENT TEMP: 28.4°C", "PRECIPITATION DETECTED: 2.5mm/h", "HAZE WARNING: AQI 151"},
		},
		{
			name:   "haze ignored without weather",
			air:    &AirReport{Current: AirCurrent{USAQI: ptr(180.0)}},
			quakes: nil,
			want:   []string{"ALL SYSTEMS NOMINAL. MONITORING..."},
		},
		{
			name:    "aqi at threshold does not fire",
			weather: &WeatherReport{Current: WeatherCurrent{Temperature: 30}},
			air:     &AirReport{Current: AirCurrent{USAQI: ptr(100.0)}},
			want:    []string{"AMBIENT TEMP: 30°C"},
		},
		{
			name:    "seismic event uses the newest feature",
			weather: &WeatherReport{Current: WeatherCurrent{Temperature: 30}},
			quakes:  []QuakeFeature{quake, older},
			want:    []string{"AMBIENT TEMP: 30°C", "SEISMIC EVENT: M5.1 12 KM NE OF RANAU, MALAYSIA"},
		},
		{
			name:   "seismic only",
			quakes: []QuakeFeature{quake},
			want:   []string{"SEISMIC EVENT: M5.1 12 KM NE OF RANAU, MALAYSIA"},
		},
		{
			name:   "nothing fired",
			quakes: []QuakeFeature{},
			want:   []string{"ALL SYSTEMS NOMINAL. MONITORING..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAlerts(tt.weather, tt.air, tt.quakes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDeriveAlertsIsDeterministic(t *testing.T) {
	weather := &WeatherReport{Current: WeatherCurrent{Temperature: 36.2, SurfacePressure: ptr(990.0), Precipitation: ptr(1.0)}}
	air := &AirReport{Current: AirCurrent{USAQI: ptr(120.0)}}
	quakes := []QuakeFeature{{Properties: QuakeProperties{Mag: 4.5, Place: "Sabah"}}}

	first := DeriveAlerts(weather, air, quakes)
	for i := 0; i < 10; i++ {
		if got := DeriveAlerts(weather, air, quakes); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %q, expected %q", i, got, first)
		}
	}
	if len(first) != 5 {
		t.Fatalf("expected all five rules to fire, got %q", first)
	}
}
