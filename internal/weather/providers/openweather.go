package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-notifier/internal/weather"
	"github.com/sony/gobreaker"
)

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap One Call daily forecast.
type OpenWeatherProvider struct {
	name     string
	apiKey   string
	baseURL  string
	days     int
	geocoder *Geocoder
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, geo *Geocoder, days int) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:     "openweathermap",
		apiKey:   apiKey,
		baseURL:  "https://api.openweathermap.org/data/3.0/onecall",
		days:     days,
		geocoder: geo,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, city string) (weather.CityForecast, error) {
	if p.apiKey == "" {
		return weather.CityForecast{}, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	coords, err := p.geocoder.Locate(city)
	if err != nil {
		return weather.CityForecast{}, err
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("exclude", "current,minutely,hourly,alerts")
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', 4, 64))

	var payload struct {
		TimezoneOffset int `json:"timezone_offset"`
		Daily          []struct {
			Dt   int64 `json:"dt"`
			Temp struct {
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"temp"`
			UVI     float64 `json:"uvi"`
			Weather []struct {
				Main string `json:"main"`
			} `json:"weather"`
		} `json:"daily"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.CityForecast{}, err
	}

	zone := time.FixedZone("", payload.TimezoneOffset)
	name, state, _ := strings.Cut(city, ",")
	out := weather.CityForecast{
		Name:           strings.TrimSpace(name),
		FederatedState: strings.TrimSpace(state),
	}
	for i, d := range payload.Daily {
		if p.days > 0 && i >= p.days {
			break
		}
		main := ""
		if len(d.Weather) > 0 {
			main = d.Weather[0].Main
		}
		out.Forecast = append(out.Forecast, weather.DailyForecast{
			Day:     time.Unix(d.Dt, 0).In(zone).Format(weather.DateLayout),
			Weather: string(mapOpenWeatherCondition(main)),
			Max:     d.Temp.Max,
			Min:     d.Temp.Min,
			IUV:     d.UVI,
		})
	}
	if len(out.Forecast) > 0 {
		out.Date = out.Forecast[0].Day
	}
	return out, nil
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
