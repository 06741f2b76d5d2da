package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-notifier/internal/notification"
	"github.com/i474232898/weather-notifier/internal/weather"
)

var validate = validator.New()

// Runner triggers a dispatch run.
type Runner interface {
	RunOnce(ctx context.Context, reference time.Time) error
}

// Subscriptions is the writable side of the subscription store.
type Subscriptions interface {
	PutSubscription(ctx context.Context, sub notification.Subscription) error
	DeleteSubscription(ctx context.Context, nickname string) error
}

// Deps are the collaborators the HTTP API needs.
type Deps struct {
	Runner        Runner
	Snapshots     weather.SnapshotStore
	Subscriptions Subscriptions
	Location      *time.Location
	Now           func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	v1 := app.Group("/api/v1")

	v1.Post("/dispatch/run", func(c *fiber.Ctx) error {
		reference := deps.Now().In(deps.Location)
		if err := deps.Runner.RunOnce(c.UserContext(), reference); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "dispatch run failed: "+err.Error())
		}
		return c.JSON(fiber.Map{
			"status":    "completed",
			"reference": reference,
		})
	})

	v1.Get("/forecasts/:city", func(c *fiber.Ctx) error {
		q := forecastQuery{
			City: c.Params("city"),
			Date: c.Query("date", deps.Now().In(deps.Location).Format(weather.DateLayout)),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		forecast, err := deps.Snapshots.GetSnapshot(c.UserContext(), q.City, q.Date)
		if err != nil {
			if errors.Is(err, weather.ErrSnapshotNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast snapshot for requested city and date")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast snapshot")
		}
		return c.JSON(forecast)
	})

	v1.Put("/subscriptions/:nickname", func(c *fiber.Ctx) error {
		var body subscriptionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		sub := notification.Subscription{
			Nickname:    c.Params("nickname"),
			Frequency:   body.Frequency,
			DeviceToken: body.DeviceToken,
			Endpoint:    body.Endpoint,
			City:        body.City,
		}
		if err := sub.Validate(); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := notification.ParseSchedule(sub.Frequency); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := deps.Subscriptions.PutSubscription(c.UserContext(), sub); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to store subscription")
		}
		return c.JSON(sub)
	})

	v1.Delete("/subscriptions/:nickname", func(c *fiber.Ctx) error {
		if err := deps.Subscriptions.DeleteSubscription(c.UserContext(), c.Params("nickname")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to delete subscription")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

type subscriptionRequest struct {
	Frequency   string `json:"frequency"`
	DeviceToken string `json:"deviceToken"`
	Endpoint    string `json:"endpoint"`
	City        string `json:"city"`
}

// forecastQuery holds the parameters of the snapshot lookup endpoint.
type forecastQuery struct {
	City string `validate:"required"`
	Date string `validate:"required,datetime=2006-01-02"`
}
