package push

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogTransport writes deliveries to the log instead of sending them.
// Used when no push gateway is configured.
type LogTransport struct {
	logger *zap.SugaredLogger
}

func NewLogTransport(logger *zap.SugaredLogger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(_ context.Context, endpoint, message string) (string, error) {
	id := uuid.NewString()
	t.logger.Infow("push delivery (log transport)", "delivery_id", id, "endpoint", endpoint, "message", message)
	return id, nil
}
