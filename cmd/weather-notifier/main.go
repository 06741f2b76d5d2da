package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/weather-notifier/internal/api/http"
	"github.com/i474232898/weather-notifier/internal/config"
	"github.com/i474232898/weather-notifier/internal/logging"
	"github.com/i474232898/weather-notifier/internal/notification"
	"github.com/i474232898/weather-notifier/internal/push"
	"github.com/i474232898/weather-notifier/internal/scheduler"
	"github.com/i474232898/weather-notifier/internal/store"
	"github.com/i474232898/weather-notifier/internal/weather"
	"github.com/i474232898/weather-notifier/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		lg.Fatalw("invalid timezone", "error", err)
	}

	// Shared HTTP client for outbound provider and gateway calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var (
		subscriptions notification.SubscriptionSource
		subWriter     httpapi.Subscriptions
		snapshots     weather.SnapshotStore
		ping          = func(context.Context) error { return nil }
	)
	switch cfg.StoreBackend {
	case "memory":
		lg.Warnw("using in-memory store; subscriptions and snapshots are lost on restart")
		memSubs := store.NewMemorySubscriptions()
		subscriptions, subWriter = memSubs, memSubs
		snapshots = store.NewMemoryStore(cfg.SnapshotHistory, cfg.SnapshotTTL)
	default:
		redisClient := redisv9.NewClient(&redisv9.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		redisStore := store.NewRedisStore(redisClient, cfg.SnapshotTTL, lg.Named("store"))
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			lg.Warnw("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		cancelPing()

		subscriptions, subWriter, snapshots = redisStore, redisStore, redisStore
		ping = redisStore.Ping
	}

	// Providers in priority order, each with backoff + circuit breaker.
	geo := providers.NewGeocoder(cfg.GeocoderAPIKey)
	var provs []weather.Provider
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.ForecastDays))
	}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, geo, cfg.ForecastDays))
	}
	provs = append(provs, providers.NewOpenMeteoProvider(httpClient, geo, cfg.ForecastDays))

	service := weather.NewService(provs, lg.Named("weather"))
	resolver := weather.NewResolver(service, snapshots, lg.Named("resolver"))

	var transport notification.Transport
	if cfg.PushGatewayURL != "" {
		transport = push.NewGateway(httpClient, cfg.PushGatewayURL, cfg.PushGatewayToken)
	} else {
		lg.Warnw("PUSH_GATEWAY_URL not set; deliveries will only be logged")
		transport = push.NewLogTransport(lg.Named("push"))
	}

	opts := []notification.Option{
		notification.WithConcurrency(cfg.DispatchConcurrency),
		notification.WithObserver(notification.NewLogObserver(lg.Named("subscription"))),
		notification.WithLogger(lg.Named("dispatch")),
	}
	if cfg.DeliveryRate > 0 {
		burst := int(cfg.DeliveryRate)
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, notification.WithDeliveryLimiter(rate.NewLimiter(rate.Limit(cfg.DeliveryRate), burst)))
	}
	dispatcher := notification.NewDispatcher(subscriptions, resolver, transport, opts...)

	sched := scheduler.New(cfg.DispatchSchedule, loc, dispatcher, lg.Named("scheduler"))
	if err := sched.Start(); err != nil {
		lg.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-notifier",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if err := ping(c.UserContext()); err != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":  status,
			"service": "weather-notifier",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Runner:        dispatcher,
		Snapshots:     snapshots,
		Subscriptions: subWriter,
		Location:      loc,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Errorw("error during shutdown", "error", err)
	}
}
