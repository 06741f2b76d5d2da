package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-notifier/internal/notification"
	"github.com/i474232898/weather-notifier/internal/weather"
)

func forecastOn(date string) weather.CityForecast {
	return weather.CityForecast{
		Name:     "Santos",
		Date:     date,
		Forecast: []weather.DailyForecast{{Day: date, Weather: "rain", Max: 30, Min: 20, IUV: 3}},
	}
}

func TestMemoryStore_WriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	_, err := s.GetSnapshot(ctx, "santos", "2026-10-15")
	assert.ErrorIs(t, err, weather.ErrSnapshotNotFound)

	require.NoError(t, s.CreateSnapshot(ctx, "santos", forecastOn("2026-10-15")))

	replacement := forecastOn("2026-10-15")
	replacement.Name = "Replaced"
	assert.ErrorIs(t, s.CreateSnapshot(ctx, "santos", replacement), weather.ErrSnapshotExists)

	got, err := s.GetSnapshot(ctx, "santos", "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, "Santos", got.Name)

	_, err = s.GetSnapshot(ctx, "santos", "2026-10-16")
	assert.ErrorIs(t, err, weather.ErrSnapshotNotFound)
	_, err = s.GetSnapshot(ctx, "recife", "2026-10-15")
	assert.ErrorIs(t, err, weather.ErrSnapshotNotFound)
}

func TestMemoryStore_RetentionByCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, 0)

	// Out of order on purpose; the oldest dates go first.
	for _, d := range []string{"2026-10-15", "2026-10-13", "2026-10-14"} {
		require.NoError(t, s.CreateSnapshot(ctx, "santos", forecastOn(d)))
	}

	_, err := s.GetSnapshot(ctx, "santos", "2026-10-13")
	assert.ErrorIs(t, err, weather.ErrSnapshotNotFound)
	for _, d := range []string{"2026-10-14", "2026-10-15"} {
		_, err := s.GetSnapshot(ctx, "santos", d)
		assert.NoError(t, err, d)
	}
}

func TestMemoryStore_RetentionByAge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.CreateSnapshot(ctx, "santos", forecastOn("2026-10-15")))
	_, err := s.GetSnapshot(ctx, "santos", "2026-10-15")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.GetSnapshot(ctx, "santos", "2026-10-15")
	assert.ErrorIs(t, err, weather.ErrSnapshotNotFound)

	// The expired entry is pruned on the next write, so the date is free again.
	require.NoError(t, s.CreateSnapshot(ctx, "santos", forecastOn("2026-10-16")))
	require.NoError(t, s.CreateSnapshot(ctx, "santos", forecastOn("2026-10-15")))
}

func TestMemorySubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySubscriptions(notification.Subscription{Nickname: "bia", Frequency: "0 * * * *", City: "recife"})

	require.NoError(t, m.PutSubscription(ctx, notification.Subscription{Nickname: "ana", Frequency: "0 8 * * *", City: "santos"}))
	assert.Error(t, m.PutSubscription(ctx, notification.Subscription{Nickname: "bad"}))

	subs, err := m.ListDueCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "ana", subs[0].Nickname)
	assert.Equal(t, "bia", subs[1].Nickname)

	require.NoError(t, m.DeleteSubscription(ctx, "ana"))
	require.NoError(t, m.DeleteSubscription(ctx, "nobody"))
	subs, err = m.ListDueCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "bia", subs[0].Nickname)
}
