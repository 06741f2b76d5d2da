package notification

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-notifier/internal/common"
	"github.com/i474232898/weather-notifier/internal/weather"
)

// TransportKey is the top-level envelope key understood by the push transport.
const TransportKey = "GCM"

// Payload is a formatted notification ready for delivery.
type Payload struct {
	Title string
	Body  string
	// Message is the encoded transport envelope.
	Message string
}

type gcmMessage struct {
	Data struct {
		Notification struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"notification"`
	} `json:"data"`
}

// Format renders a city forecast as a push notification.
func Format(forecast weather.CityForecast) (Payload, error) {
	name := common.FirstNonEmpty(forecast.Name, forecast.FederatedState)

	title := "Forecast"
	if name != "" {
		title = "Forecast for " + name
	}

	var body strings.Builder
	fmt.Fprintf(&body, "The next %d days forecast for %s is:\n", len(forecast.Forecast), name)
	for _, day := range forecast.Forecast {
		fmt.Fprintf(&body, "%s: %s; max %s; min %s; iuv %s\n",
			day.Day, day.Weather, formatNumber(day.Max), formatNumber(day.Min), formatNumber(day.IUV))
	}

	var msg gcmMessage
	msg.Data.Notification.Title = title
	msg.Data.Notification.Body = body.String()

	inner, err := json.Marshal(msg)
	if err != nil {
		return Payload{}, fmt.Errorf("encode notification: %w", err)
	}
	envelope, err := json.Marshal(map[string]string{TransportKey: string(inner)})
	if err != nil {
		return Payload{}, fmt.Errorf("encode envelope: %w", err)
	}

	return Payload{
		Title:   title,
		Body:    body.String(),
		Message: string(envelope),
	}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
