// Package weather fetches forecast snapshots for a coordinate.
package weather

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/fleet-routing/internal/models"
)

// Source is the interface the optimizer and trip manager use to take a
// weather snapshot for a corridor.
type Source interface {
	Current(at models.Coord) (models.WeatherSnapshot, error)
}

// Client queries an Open-Meteo compatible forecast endpoint.
type Client struct {
	Endpoint string
	Client   *http.Client
	Cache    *Cache // optional
}

func NewClient(endpoint string, timeout, cacheTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := &Client{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
	if cacheTTL > 0 {
		c.Cache = NewCache(cacheTTL)
	}
	return c
}

func (c *Client) Current(at models.Coord) (models.WeatherSnapshot, error) {
	if c.Cache != nil {
		if w, ok := c.Cache.Get(at); ok {
			return w, nil
		}
	}
	url := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f&current=temperature_2m,relative_humidity_2m,precipitation_probability,weather_code,wind_speed_10m",
		c.Endpoint, at.Lat, at.Lon)
	resp, err := c.Client.Get(url)
	if err != nil {
		return models.WeatherSnapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.WeatherSnapshot{}, fmt.Errorf("weather status %d", resp.StatusCode)
	}
	var out struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			RainProb    float64 `json:"precipitation_probability"`
			WeatherCode int     `json:"weather_code"`
			WindSpeed   float64 `json:"wind_speed_10m"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.WeatherSnapshot{}, err
	}
	w := models.WeatherSnapshot{
		Condition:          conditionFromCode(out.Current.WeatherCode),
		TemperatureC:       out.Current.Temperature,
		HumidityPct:        out.Current.Humidity,
		WindSpeedKmh:       out.Current.WindSpeed,
		RainProbabilityPct: out.Current.RainProb,
		TakenAt:            time.Now().UTC(),
	}
	if c.Cache != nil {
		c.Cache.Set(at, w)
	}
	return w, nil
}

// conditionFromCode collapses WMO weather codes into the handful of
// condition labels the risk policy understands.
func conditionFromCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 3:
		return "Cloudy"
	case code >= 95:
		return "Thunderstorm"
	case code == 65 || code == 67 || code == 82:
		return "Heavy Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 51:
		return "Rain"
	default:
		return "Cloudy"
	}
}
