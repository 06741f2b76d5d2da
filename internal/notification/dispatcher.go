package notification

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-notifier/internal/weather"
)

// LookBack is the tolerance window applied before evaluating a subscription's
// schedule: a fire instant within the last minute counts as due now.
const LookBack = time.Minute

// DefaultConcurrency bounds how many subscriptions are processed at once.
const DefaultConcurrency = 16

// Resolver resolves the forecast of a city for a date.
type Resolver interface {
	Resolve(ctx context.Context, city string, date time.Time) (weather.CityForecast, error)
}

// Dispatcher sends scheduled forecast notifications to due subscriptions.
type Dispatcher struct {
	source    SubscriptionSource
	resolver  Resolver
	transport Transport
	observer  Observer
	logger    *zap.SugaredLogger

	concurrency int
	limiter     *rate.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency sets the maximum number of subscriptions processed in
// parallel. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) { d.concurrency = n }
}

// WithDeliveryLimiter throttles calls to the transport.
func WithDeliveryLimiter(l *rate.Limiter) Option {
	return func(d *Dispatcher) { d.limiter = l }
}

// WithObserver sets the per-subscription event observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithLogger sets the run-level logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(source SubscriptionSource, resolver Resolver, transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source:      source,
		resolver:    resolver,
		transport:   transport,
		observer:    NopObserver{},
		logger:      zap.NewNop().Sugar(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunOnce processes every subscription against reference and returns once all
// of them are done. Per-subscription failures are reported to the observer and
// never returned; only failing to load the subscriptions is an error.
func (d *Dispatcher) RunOnce(ctx context.Context, reference time.Time) error {
	subs, err := d.source.ListDueCandidates(ctx)
	if err != nil {
		return fmt.Errorf("list due candidates: %w", err)
	}

	r := &run{
		id:        uuid.NewString(),
		reference: reference,
		cache:     weather.NewCache(),
		d:         d,
	}

	d.logger.Infow("dispatch run started",
		"run_id", r.id,
		"reference", reference,
		"subscriptions", len(subs),
	)

	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for _, sub := range subs {
		g.Go(func() error {
			r.process(ctx, sub)
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Infow("dispatch run completed",
		"run_id", r.id,
		"delivered", r.delivered.Load(),
		"failed", r.failed.Load(),
		"cities", r.cache.Len(),
	)
	return nil
}

// run holds the state shared by the subscriptions of one RunOnce call.
type run struct {
	id        string
	reference time.Time
	cache     *weather.Cache
	inflight  singleflight.Group
	d         *Dispatcher

	delivered atomic.Int64
	failed    atomic.Int64
}

func (r *run) observe(ctx context.Context, sub Subscription, ev Event) {
	ev.RunID = r.id
	ev.Nickname = sub.Nickname
	ev.City = sub.City
	r.d.observer.Observe(ctx, ev)
}

// process runs one subscription's pipeline. Nothing escapes it, panics included.
func (r *run) process(ctx context.Context, sub Subscription) {
	defer func() {
		if p := recover(); p != nil {
			r.failed.Add(1)
			r.d.logger.Errorw("subscription pipeline panicked",
				"run_id", r.id, "nickname", sub.Nickname, "panic", p)
		}
	}()

	r.observe(ctx, sub, Event{Stage: StageLoaded})

	if !sub.HasEndpoint() {
		r.observe(ctx, sub, Event{Stage: StageSkipped})
		return
	}

	next, err := NextFireAfter(sub.Frequency, r.reference.Add(-LookBack))
	if err != nil {
		r.failed.Add(1)
		r.observe(ctx, sub, Event{Stage: StageInvalidSchedule, Err: err})
		return
	}
	if !next.Before(r.reference) {
		r.observe(ctx, sub, Event{Stage: StageNotDue, NextFire: next})
		return
	}
	r.observe(ctx, sub, Event{Stage: StageDue, NextFire: next})

	forecast, cached, err := r.forecast(ctx, sub.City)
	if err != nil {
		if !errors.Is(err, weather.ErrForecastUnavailable) {
			r.failed.Add(1)
		}
		r.observe(ctx, sub, Event{Stage: StageUnresolved, Err: err})
		return
	}
	r.observe(ctx, sub, Event{Stage: StageResolved, Cached: cached})

	deliveryID, err := r.deliver(ctx, sub, forecast)
	if err != nil {
		r.failed.Add(1)
		r.observe(ctx, sub, Event{Stage: StageDeliveryFailed, Err: err})
		return
	}
	r.delivered.Add(1)
	r.observe(ctx, sub, Event{Stage: StageDelivered, DeliveryID: deliveryID})
}

// forecast returns the city's forecast from the run cache, resolving it at most
// once concurrently. Unavailable forecasts are not cached so a later
// subscription for the same city tries again.
func (r *run) forecast(ctx context.Context, city string) (weather.CityForecast, bool, error) {
	if f, ok := r.cache.Get(city); ok {
		return f, true, nil
	}

	v, err, shared := r.inflight.Do(city, func() (interface{}, error) {
		if f, ok := r.cache.Get(city); ok {
			return f, nil
		}
		f, err := r.d.resolver.Resolve(ctx, city, r.reference)
		if err != nil {
			return nil, err
		}
		r.cache.Set(city, f)
		return f, nil
	})
	if err != nil {
		return weather.CityForecast{}, false, err
	}
	return v.(weather.CityForecast), shared, nil
}

func (r *run) deliver(ctx context.Context, sub Subscription, forecast weather.CityForecast) (string, error) {
	payload, err := Format(forecast)
	if err != nil {
		return "", err
	}
	if r.d.limiter != nil {
		if err := r.d.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("delivery throttle: %w", err)
		}
	}
	return r.d.transport.Deliver(ctx, sub.Endpoint, payload.Message)
}
