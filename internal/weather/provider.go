package weather

import (
	"context"
	"errors"
)

var (
	// ErrForecastUnavailable is returned when neither the live source nor the
	// snapshot store produced a forecast.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrSnapshotNotFound is returned by a SnapshotStore when no snapshot exists.
	ErrSnapshotNotFound = errors.New("forecast snapshot not found")

	// ErrSnapshotExists is returned by CreateSnapshot when the snapshot was already written.
	ErrSnapshotExists = errors.New("forecast snapshot already exists")
)

// Provider abstracts a weather data source (e.g. WeatherAPI, Open-Meteo, OpenWeather).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, city string) (CityForecast, error)
}

// Source is the live forecast source consumed by the Resolver.
type Source interface {
	FetchForecast(ctx context.Context, city string) (CityForecast, error)
}

// SnapshotStore is the contract for persisted forecast snapshots.
// Snapshots are write-once: CreateSnapshot never overwrites an existing one.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, city, date string) (CityForecast, error)
	CreateSnapshot(ctx context.Context, city string, forecast CityForecast) error
}
