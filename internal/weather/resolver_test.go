package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	forecast CityForecast
	err      error
	calls    int
}

func (s *stubSource) FetchForecast(context.Context, string) (CityForecast, error) {
	s.calls++
	return s.forecast, s.err
}

type stubSnapshots struct {
	stored   map[string]CityForecast
	readErr  error
	writeErr error
	reads    int
	writes   []CityForecast
}

func (s *stubSnapshots) GetSnapshot(_ context.Context, city, date string) (CityForecast, error) {
	s.reads++
	if s.readErr != nil {
		return CityForecast{}, s.readErr
	}
	if f, ok := s.stored[city+"|"+date]; ok {
		return f, nil
	}
	return CityForecast{}, ErrSnapshotNotFound
}

func (s *stubSnapshots) CreateSnapshot(_ context.Context, _ string, f CityForecast) error {
	s.writes = append(s.writes, f)
	return s.writeErr
}

var lookupDay = time.Date(2026, 10, 15, 10, 0, 30, 0, time.UTC)

func liveForecast() CityForecast {
	return CityForecast{
		Name:     "Santos",
		Date:     "2026-10-14",
		Forecast: []DailyForecast{{Day: "2026-10-15", Weather: "rain", Max: 30, Min: 20, IUV: 3}},
	}
}

func storedForecast() CityForecast {
	return CityForecast{
		Name:     "Santos (stored)",
		Date:     "2026-10-15",
		Forecast: []DailyForecast{{Day: "2026-10-15", Weather: "clear", Max: 28, Min: 18, IUV: 6}},
	}
}

func TestResolve(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		source     *stubSource
		snapshots  *stubSnapshots
		want       CityForecast
		wantErr    error
		wantWrites int
	}{
		{
			name:       "live ok and snapshot missing repairs the snapshot",
			source:     &stubSource{forecast: liveForecast()},
			snapshots:  &stubSnapshots{},
			want:       liveForecast(),
			wantWrites: 1,
		},
		{
			name:      "live ok and snapshot present keeps the snapshot",
			source:    &stubSource{forecast: liveForecast()},
			snapshots: &stubSnapshots{stored: map[string]CityForecast{"santos|2026-10-15": storedForecast()}},
			want:      liveForecast(),
		},
		{
			name:      "live fails and snapshot present serves the snapshot",
			source:    &stubSource{err: boom},
			snapshots: &stubSnapshots{stored: map[string]CityForecast{"santos|2026-10-15": storedForecast()}},
			want:      storedForecast(),
		},
		{
			name:      "live empty and snapshot present serves the snapshot",
			source:    &stubSource{},
			snapshots: &stubSnapshots{stored: map[string]CityForecast{"santos|2026-10-15": storedForecast()}},
			want:      storedForecast(),
		},
		{
			name:      "live fails and snapshot missing is unavailable",
			source:    &stubSource{err: boom},
			snapshots: &stubSnapshots{},
			wantErr:   ErrForecastUnavailable,
		},
		{
			name:      "snapshot read failure suppresses the repair",
			source:    &stubSource{forecast: liveForecast()},
			snapshots: &stubSnapshots{readErr: boom},
			want:      liveForecast(),
		},
		{
			name:      "snapshot read failure with live failure is unavailable",
			source:    &stubSource{err: boom},
			snapshots: &stubSnapshots{readErr: boom},
			wantErr:   ErrForecastUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.source, tt.snapshots, nil)

			got, err := r.Resolve(context.Background(), "santos", lookupDay)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.Equal(t, 1, tt.source.calls)
			assert.Equal(t, 1, tt.snapshots.reads)
			assert.Len(t, tt.snapshots.writes, tt.wantWrites)
		})
	}
}

func TestResolve_RepairIsDatedWithLookupDay(t *testing.T) {
	snapshots := &stubSnapshots{}
	r := NewResolver(&stubSource{forecast: liveForecast()}, snapshots, nil)

	got, err := r.Resolve(context.Background(), "santos", lookupDay)
	require.NoError(t, err)

	require.Len(t, snapshots.writes, 1)
	assert.Equal(t, "2026-10-15", snapshots.writes[0].Date)
	assert.Equal(t, liveForecast().Forecast, snapshots.writes[0].Forecast)
	// The caller still gets the live forecast untouched.
	assert.Equal(t, "2026-10-14", got.Date)
}

func TestResolve_WriteErrorsAreNotFatal(t *testing.T) {
	for _, writeErr := range []error{ErrSnapshotExists, errors.New("disk full")} {
		snapshots := &stubSnapshots{writeErr: writeErr}
		r := NewResolver(&stubSource{forecast: liveForecast()}, snapshots, nil)

		got, err := r.Resolve(context.Background(), "santos", lookupDay)
		require.NoError(t, err)
		assert.Equal(t, liveForecast(), got)
		assert.Len(t, snapshots.writes, 1)
	}
}
