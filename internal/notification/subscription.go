package notification

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Subscription is a user's request to receive forecast notifications for a
// city at a cron frequency. Endpoint is optional: subscriptions without one
// are never notified.
type Subscription struct {
	Nickname    string `json:"nickname" validate:"required"`
	Frequency   string `json:"frequency" validate:"required"`
	DeviceToken string `json:"deviceToken"`
	Endpoint    string `json:"endpoint,omitempty"`
	City        string `json:"city" validate:"required"`
}

// Validate checks the required fields.
func (s Subscription) Validate() error {
	return validate.Struct(s)
}

// HasEndpoint reports whether the subscription can receive a delivery.
func (s Subscription) HasEndpoint() bool {
	return strings.TrimSpace(s.Endpoint) != ""
}

// SubscriptionSource lists every subscription that has a schedule.
// No due filtering happens there; the Dispatcher decides.
type SubscriptionSource interface {
	ListDueCandidates(ctx context.Context) ([]Subscription, error)
}

// Transport delivers an encoded notification envelope to a push endpoint and
// returns the transport's delivery id.
type Transport interface {
	Deliver(ctx context.Context, endpoint, message string) (string, error)
}
