package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-notifier/internal/common"
	"github.com/i474232898/weather-notifier/internal/weather"
	"github.com/sony/gobreaker"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, days int) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		days:    days,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, city string) (weather.CityForecast, error) {
	if p.apiKey == "" {
		return weather.CityForecast{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	// WeatherAPI uses "q" for location; it accepts "city" or "city,country".
	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", city)
	values.Set("days", strconv.Itoa(p.days))
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload struct {
		Location struct {
			Name      string `json:"name"`
			Region    string `json:"region"`
			Localtime string `json:"localtime"`
		} `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC  float64 `json:"maxtemp_c"`
					MinTempC  float64 `json:"mintemp_c"`
					UV        float64 `json:"uv"`
					Condition struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.CityForecast{}, err
	}

	out := weather.CityForecast{
		Name:           payload.Location.Name,
		FederatedState: payload.Location.Region,
		Forecast:       make([]weather.DailyForecast, 0, len(payload.Forecast.ForecastDay)),
	}
	if date, _, ok := strings.Cut(payload.Location.Localtime, " "); ok {
		out.Date = date
	}
	for _, fd := range payload.Forecast.ForecastDay {
		out.Forecast = append(out.Forecast, weather.DailyForecast{
			Day:     fd.Date,
			Weather: string(mapWeatherAPICondition(fd.Day.Condition.Text)),
			Max:     fd.Day.MaxTempC,
			Min:     fd.Day.MinTempC,
			IUV:     fd.Day.UV,
		})
	}
	if out.Date == "" && len(out.Forecast) > 0 {
		out.Date = out.Forecast[0].Day
	}
	return out, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return weather.ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return weather.ConditionSnow
	case common.HasAny(t, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(t, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(t, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
