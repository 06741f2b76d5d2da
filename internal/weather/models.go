package weather

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// DateLayout is the calendar date format used for snapshot keys and forecast dates.
const DateLayout = "2006-01-02"

// DailyForecast is one day of a city forecast.
type DailyForecast struct {
	Day     string  `json:"day"`
	Weather string  `json:"weather"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	IUV     float64 `json:"iuv"`
}

// CityForecast is a multi-day forecast for a single city.
// Forecast entries are in calendar order and that order is preserved end to end.
type CityForecast struct {
	Name           string          `json:"name"`
	FederatedState string          `json:"federatedState"`
	Date           string          `json:"date"`
	Forecast       []DailyForecast `json:"forecast"`
}

// IsZero reports whether f carries no data at all.
func (f CityForecast) IsZero() bool {
	return f.Name == "" && f.FederatedState == "" && f.Date == "" && len(f.Forecast) == 0
}
