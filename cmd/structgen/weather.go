package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"structgen/tool"
)

const forecastURL = "https://api.open-meteo.com/v1/forecast"

var weatherClient = &http.Client{Timeout: 10 * time.Second}

// newWeatherTool exposes the Open-Meteo current conditions endpoint as a
// callable tool.
func newWeatherTool() (*tool.FunctionTool, error) {
	return tool.NewFunctionTool(
		"get_weather",
		"Get the current temperature in celsius and wind speed for the provided coordinates.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"latitude":  map[string]any{"type": "number"},
				"longitude": map[string]any{"type": "number"},
			},
			"required": []any{"latitude", "longitude"},
		},
		fetchWeather,
	)
}

func fetchWeather(ctx context.Context, args map[string]any) (any, error) {
	lat, _ := args["latitude"].(float64)
	lon, _ := args["longitude"].(float64)

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", lat))
	q.Set("longitude", fmt.Sprintf("%g", lon))
	q.Set("current", "temperature_2m,wind_speed_10m")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, forecastURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := weatherClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather lookup failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return map[string]any{
		"temperature_celsius": payload.Current.Temperature,
		"wind_speed_kmh":      payload.Current.WindSpeed,
	}, nil
}
