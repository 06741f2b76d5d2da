package weather

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Resolver resolves a city forecast from the live source, falling back to the
// persisted snapshot and repairing the snapshot store when it is missing one.
type Resolver struct {
	source    Source
	snapshots SnapshotStore
	logger    *zap.SugaredLogger
}

// NewResolver creates a Resolver. A nil logger disables logging.
func NewResolver(source Source, snapshots SnapshotStore, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{
		source:    source,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Resolve returns the forecast for city on the given date.
//
// The live source wins whenever it answers. The snapshot for (city, date) is
// always read once; it is returned only when the live fetch failed, and it is
// created from the live result when none exists yet. ErrForecastUnavailable is
// returned when both sources come up empty.
func (r *Resolver) Resolve(ctx context.Context, city string, date time.Time) (CityForecast, error) {
	day := date.Format(DateLayout)

	live, liveOK := r.fetchLive(ctx, city)

	snapshot, err := r.snapshots.GetSnapshot(ctx, city, day)
	snapshotOK := err == nil
	readFailed := err != nil && !errors.Is(err, ErrSnapshotNotFound)
	if readFailed {
		r.logger.Warnw("snapshot read failed", "city", city, "date", day, "error", err)
	}

	switch {
	case liveOK:
		if !snapshotOK && !readFailed {
			r.repair(ctx, city, day, live)
		}
		return live, nil
	case snapshotOK:
		r.logger.Infow("serving forecast from snapshot", "city", city, "date", day)
		return snapshot, nil
	default:
		return CityForecast{}, ErrForecastUnavailable
	}
}

func (r *Resolver) fetchLive(ctx context.Context, city string) (CityForecast, bool) {
	live, err := r.source.FetchForecast(ctx, city)
	if err != nil {
		r.logger.Warnw("live forecast fetch failed; falling back to snapshot", "city", city, "error", err)
		return CityForecast{}, false
	}
	if live.IsZero() {
		return CityForecast{}, false
	}
	return live, true
}

// repair writes the live forecast as the snapshot for day. Failures are logged only.
// The snapshot is dated with the lookup day so the next read for day finds it.
func (r *Resolver) repair(ctx context.Context, city, day string, live CityForecast) {
	live.Date = day
	err := r.snapshots.CreateSnapshot(ctx, city, live)
	switch {
	case err == nil:
		r.logger.Infow("created forecast snapshot", "city", city, "date", live.Date)
	case errors.Is(err, ErrSnapshotExists):
		// Another worker repaired it first.
	default:
		r.logger.Errorw("snapshot create failed", "city", city, "date", live.Date, "error", err)
	}
}
