package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Stage is a step of a subscription's pipeline within one run.
type Stage string

const (
	StageLoaded          Stage = "loaded"
	StageSkipped         Stage = "skipped"
	StageInvalidSchedule Stage = "invalid_schedule"
	StageNotDue          Stage = "not_due"
	StageDue             Stage = "due"
	StageResolved        Stage = "resolved"
	StageUnresolved      Stage = "unresolved"
	StageDelivered       Stage = "delivered"
	StageDeliveryFailed  Stage = "delivery_failed"
)

// Event is one observation of a subscription's progress.
type Event struct {
	RunID      string
	Stage      Stage
	Nickname   string
	City       string
	NextFire   time.Time
	Cached     bool
	DeliveryID string
	Err        error
}

// Observer receives per-subscription events. Implementations must be safe for
// concurrent use.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) Observe(context.Context, Event) {}

// LogObserver writes events as structured zap records.
type LogObserver struct {
	logger *zap.SugaredLogger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *zap.SugaredLogger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Observe(_ context.Context, ev Event) {
	kv := []interface{}{
		"run_id", ev.RunID,
		"stage", string(ev.Stage),
		"nickname", ev.Nickname,
		"city", ev.City,
	}
	if !ev.NextFire.IsZero() {
		kv = append(kv, "next_fire", ev.NextFire)
	}
	if ev.Stage == StageResolved {
		kv = append(kv, "cached", ev.Cached)
	}
	if ev.DeliveryID != "" {
		kv = append(kv, "delivery_id", ev.DeliveryID)
	}
	if ev.Err != nil {
		kv = append(kv, "error", ev.Err)
	}

	switch ev.Stage {
	case StageInvalidSchedule, StageDeliveryFailed:
		o.logger.Warnw("subscription "+string(ev.Stage), kv...)
	case StageDelivered, StageUnresolved:
		o.logger.Infow("subscription "+string(ev.Stage), kv...)
	default:
		o.logger.Debugw("subscription "+string(ev.Stage), kv...)
	}
}
