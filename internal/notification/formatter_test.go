package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-notifier/internal/weather"
)

func sampleForecast() weather.CityForecast {
	return weather.CityForecast{
		Name:           "Santos",
		FederatedState: "SP",
		Date:           "2026-10-15",
		Forecast: []weather.DailyForecast{
			{Day: "2026-10-15", Weather: "rain", Max: 30, Min: 20, IUV: 3},
			{Day: "2026-10-16", Weather: "clear", Max: 31.5, Min: 19.2, IUV: 11},
		},
	}
}

func TestFormat_Body(t *testing.T) {
	p, err := Format(sampleForecast())
	require.NoError(t, err)

	assert.Equal(t, "Forecast for Santos", p.Title)
	assert.Equal(t,
		"The next 2 days forecast for Santos is:\n"+
			"2026-10-15: rain; max 30; min 20; iuv 3\n"+
			"2026-10-16: clear; max 31.5; min 19.2; iuv 11\n",
		p.Body)
}

func TestFormat_Envelope(t *testing.T) {
	p, err := Format(sampleForecast())
	require.NoError(t, err)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(p.Message), &envelope))
	require.Len(t, envelope, 1)

	inner, ok := envelope[TransportKey]
	require.True(t, ok, "missing %s key", TransportKey)

	var msg struct {
		Data struct {
			Notification struct {
				Title string `json:"title"`
				Body  string `json:"body"`
			} `json:"notification"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(inner), &msg))
	assert.Equal(t, p.Title, msg.Data.Notification.Title)
	assert.Equal(t, p.Body, msg.Data.Notification.Body)
}

func TestFormat_EmptyForecast(t *testing.T) {
	p, err := Format(weather.CityForecast{})
	require.NoError(t, err)

	assert.Equal(t, "Forecast", p.Title)
	assert.Equal(t, "The next 0 days forecast for  is:\n", p.Body)
	assert.NotEmpty(t, p.Message)
}
