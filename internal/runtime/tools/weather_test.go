package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func newWeatherServer(t *testing.T, geocodes *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geo", func(w http.ResponseWriter, r *http.Request) {
		geocodes.Add(1)
		var results []place
		switch r.URL.Query().Get("name") {
		case "San Francisco":
			results = []place{{Name: "San Francisco", Admin1: "California", Country: "United States", Latitude: 37.77, Longitude: -122.42}}
		case "Reykjavik":
			results = []place{{Name: "Reykjavík", Country: "Iceland", Latitude: 64.14, Longitude: -21.9}}
		}
		json.NewEncoder(w).Encode(geocodeResponse{Results: results})
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("current") == "" {
			t.Error("missing current parameter")
		}
		w.Write([]byte(`{
			"current": {"temperature_2m": 18.5, "relative_humidity_2m": 72, "weather_code": 3, "wind_speed_10m": 11.2},
			"current_units": {"temperature_2m": "°C", "relative_humidity_2m": "%", "wind_speed_10m": "km/h"}
		}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testWeather(server *httptest.Server) *Weather {
	w := NewWeather()
	w.geocodeURL = server.URL + "/geo"
	w.forecastURL = server.URL + "/forecast"
	return w
}

func TestWeatherName(t *testing.T) {
	w := NewWeather()
	if w.Name() != "get_current_weather" {
		t.Errorf("expected 'get_current_weather', got %q", w.Name())
	}
	if w.Schema().Required[0] != "location" {
		t.Errorf("expected location to be required")
	}
}

func TestWeatherExecute(t *testing.T) {
	var geocodes atomic.Int32
	w := testWeather(newWeatherServer(t, &geocodes))

	res, err := w.Execute(context.Background(), map[string]any{"location": "San Francisco, CA"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"location":    "San Francisco, California, United States",
		"temperature": "18.5 °C",
		"condition":   "Mainly clear, partly cloudy, and overcast",
		"humidity":    "72 %",
		"wind_speed":  "11.2 km/h",
		"source":      "Open-Meteo API (Real-time)",
	}
	for k, v := range want {
		if res.Fields[k] != v {
			t.Errorf("%s: expected %q, got %v", k, v, res.Fields[k])
		}
	}
	coords, ok := res.Fields["coordinates"].(map[string]any)
	if !ok || coords["lat"] != 37.77 || coords["lng"] != -122.42 {
		t.Errorf("unexpected coordinates: %v", res.Fields["coordinates"])
	}
	if geocodes.Load() != 2 {
		t.Errorf("expected fallback geocode, got %d requests", geocodes.Load())
	}
}

func TestWeatherLocationWithoutRegion(t *testing.T) {
	var geocodes atomic.Int32
	w := testWeather(newWeatherServer(t, &geocodes))

	res, err := w.Execute(context.Background(), map[string]any{"location": "Reykjavik"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Fields["location"] != "Reykjavík, Iceland" {
		t.Errorf("unexpected location %v", res.Fields["location"])
	}
}

func TestWeatherNotFound(t *testing.T) {
	var geocodes atomic.Int32
	w := testWeather(newWeatherServer(t, &geocodes))

	res, err := w.Execute(context.Background(), map[string]any{"location": "Atlantis"})
	if err != nil {
		t.Fatal(err)
	}
	want := "Location 'Atlantis' not found. Please try entering just the city name."
	if res.Fields["error"] != want {
		t.Errorf("expected %q, got %v", want, res.Fields["error"])
	}
	if geocodes.Load() != 1 {
		t.Errorf("expected no fallback without a comma, got %d requests", geocodes.Load())
	}
}

func TestWeatherNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	res, err := testWeather(server).Execute(context.Background(), map[string]any{"location": "Paris"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Fields["error"] != "Failed to fetch weather data due to network issue." {
		t.Errorf("unexpected error field: %v", res.Fields["error"])
	}
}

func TestWeatherGeocodeCached(t *testing.T) {
	var geocodes atomic.Int32
	w := testWeather(newWeatherServer(t, &geocodes))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Execute(context.Background(), map[string]any{"location": "Reykjavik"})
		}()
	}
	wg.Wait()
	w.Execute(context.Background(), map[string]any{"location": "reykjavik"})

	if n := geocodes.Load(); n < 1 || n > 5 {
		t.Errorf("unexpected geocode count %d", n)
	}
	before := geocodes.Load()
	w.Execute(context.Background(), map[string]any{"location": "Reykjavik"})
	if geocodes.Load() != before {
		t.Error("expected cached geocode")
	}
}

func TestCondition(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{2, "Mainly clear, partly cloudy, and overcast"},
		{48, "Fog"},
		{53, "Drizzle"},
		{63, "Rain"},
		{81, "Rain showers"},
		{99, "Thunderstorm"},
		{71, "Unknown/Mixed"},
	}
	for _, tt := range tests {
		if got := Condition(tt.code); got != tt.want {
			t.Errorf("Condition(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
