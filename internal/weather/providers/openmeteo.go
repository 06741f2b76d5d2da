package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-notifier/internal/weather"
	"github.com/sony/gobreaker"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	days     int
	geocoder *Geocoder
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider for the Open-Meteo daily forecast.
// Open-Meteo needs no API key, but city names must be geocoded first.
func NewOpenMeteoProvider(client *http.Client, geo *Geocoder, days int) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		days:     days,
		geocoder: geo,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, city string) (weather.CityForecast, error) {
	coords, err := p.geocoder.Locate(city)
	if err != nil {
		return weather.CityForecast{}, err
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', 4, 64))
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,uv_index_max")
	values.Set("timezone", "auto")
	values.Set("forecast_days", strconv.Itoa(p.days))

	var payload struct {
		Daily struct {
			Time        []string  `json:"time"`
			WeatherCode []int     `json:"weather_code"`
			TempMax     []float64 `json:"temperature_2m_max"`
			TempMin     []float64 `json:"temperature_2m_min"`
			UVIndexMax  []float64 `json:"uv_index_max"`
		} `json:"daily"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.CityForecast{}, err
	}

	d := payload.Daily
	n := len(d.Time)
	if len(d.WeatherCode) < n || len(d.TempMax) < n || len(d.TempMin) < n || len(d.UVIndexMax) < n {
		return weather.CityForecast{}, fmt.Errorf("openmeteo: inconsistent daily series")
	}

	name, state, _ := strings.Cut(city, ",")
	out := weather.CityForecast{
		Name:           strings.TrimSpace(name),
		FederatedState: strings.TrimSpace(state),
		Forecast:       make([]weather.DailyForecast, 0, n),
	}
	for i := 0; i < n; i++ {
		out.Forecast = append(out.Forecast, weather.DailyForecast{
			Day:     d.Time[i],
			Weather: string(mapOpenMeteoCondition(d.WeatherCode[i])),
			Max:     d.TempMax[i],
			Min:     d.TempMin[i],
			IUV:     d.UVIndexMax[i],
		})
	}
	if n > 0 {
		out.Date = d.Time[0]
	}
	return out, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// WMO weather interpretation codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
