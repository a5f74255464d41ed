package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/singleflight"

	"github.com/user/waferchat/pkg/llm"
)

const (
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	weatherSource     = "Open-Meteo API (Real-time)"
	weatherNetworkErr = "Failed to fetch weather data due to network issue."
)

// Weather reports current conditions from Open-Meteo.
type Weather struct {
	geocodeURL  string
	forecastURL string
	client      *http.Client

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]*place
}

// NewWeather creates a new Weather tool.
func NewWeather() *Weather {
	return &Weather{
		geocodeURL:  defaultGeocodeURL,
		forecastURL: defaultForecastURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		cache:       make(map[string]*place),
	}
}

func (w *Weather) Name() string        { return "get_current_weather" }
func (w *Weather) Description() string { return "Get the current weather in a given location" }
func (w *Weather) Schema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"location": map[string]any{
				"type":        "string",
				"description": "The city and state, e.g. San Francisco, CA",
			},
		},
		Required: []string{"location"},
	}
}

type place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *place) label() string {
	if p.Admin1 != "" {
		return fmt.Sprintf("%s, %s, %s", p.Name, p.Admin1, p.Country)
	}
	return fmt.Sprintf("%s, %s", p.Name, p.Country)
}

type geocodeResponse struct {
	Results []place `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Units struct {
		Temperature string `json:"temperature_2m"`
		Humidity    string `json:"relative_humidity_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
}

// Execute geocodes the location and fetches its current weather. Lookup and
// network failures are reported as {error} results.
func (w *Weather) Execute(ctx context.Context, args map[string]any) (llm.ToolResult, error) {
	location, _ := args["location"].(string)
	if location == "" {
		return llm.ToolResult{}, fmt.Errorf("location is required")
	}

	p, err := w.geocode(ctx, location)
	if err == nil && p == nil && strings.Contains(location, ",") {
		city := strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
		slog.Debug("retrying geocoding", "query", city)
		p, err = w.geocode(ctx, city)
	}
	if err != nil {
		slog.Warn("weather fetch failed", "location", location, "error", err)
		return llm.PlainResult(map[string]any{"error": weatherNetworkErr}), nil
	}
	if p == nil {
		return llm.PlainResult(map[string]any{
			"error": fmt.Sprintf("Location '%s' not found. Please try entering just the city name.", location),
		}), nil
	}

	fc, err := w.forecast(ctx, p)
	if err != nil {
		slog.Warn("weather fetch failed", "location", location, "error", err)
		return llm.PlainResult(map[string]any{"error": weatherNetworkErr}), nil
	}

	cur, units := fc.Current, fc.Units
	return llm.PlainResult(map[string]any{
		"location":    p.label(),
		"coordinates": map[string]any{"lat": p.Latitude, "lng": p.Longitude},
		"temperature": withUnit(cur.Temperature, units.Temperature),
		"condition":   Condition(cur.WeatherCode),
		"humidity":    withUnit(cur.Humidity, units.Humidity),
		"wind_speed":  withUnit(cur.WindSpeed, units.WindSpeed),
		"source":      weatherSource,
	}), nil
}

// geocode resolves query to its first match, or nil when there is none.
// Matches are cached and concurrent lookups of the same query share one
// request.
func (w *Weather) geocode(ctx context.Context, query string) (*place, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	w.mu.Lock()
	p, ok := w.cache[key]
	w.mu.Unlock()
	if ok {
		return p, nil
	}

	v, err, _ := w.group.Do(key, func() (any, error) {
		u, _ := url.Parse(w.geocodeURL)
		q := u.Query()
		q.Set("name", query)
		q.Set("count", "1")
		q.Set("language", "en")
		q.Set("format", "json")
		u.RawQuery = q.Encode()

		var resp geocodeResponse
		if err := w.getJSON(ctx, u.String(), &resp); err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			return (*place)(nil), nil
		}
		p := resp.Results[0]
		w.mu.Lock()
		w.cache[key] = &p
		w.mu.Unlock()
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*place), nil
}

func (w *Weather) forecast(ctx context.Context, p *place) (*forecastResponse, error) {
	u, _ := url.Parse(w.forecastURL)
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	u.RawQuery = q.Encode()

	var resp forecastResponse
	if err := w.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (w *Weather) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Open-Meteo error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Condition maps a WMO weather code to a short description.
func Condition(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code >= 1 && code <= 3:
		return "Mainly clear, partly cloudy, and overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 55:
		return "Drizzle"
	case code >= 61 && code <= 65:
		return "Rain"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code >= 95:
		return "Thunderstorm"
	}
	return "Unknown/Mixed"
}

func withUnit(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}
