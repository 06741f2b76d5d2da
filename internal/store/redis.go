package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/notification"
	"github.com/i474232898/weather-notifier/internal/weather"
)

// RedisStore persists subscriptions and forecast snapshots in Redis.
// Subscriptions are Hashes indexed by a Set; snapshots are JSON strings
// written with SETNX so an existing snapshot is never replaced.
type RedisStore struct {
	client      redisv9.Cmdable
	snapshotTTL time.Duration
	logger      *zap.SugaredLogger
}

var (
	_ weather.SnapshotStore           = (*RedisStore)(nil)
	_ notification.SubscriptionSource = (*RedisStore)(nil)
)

// NewRedisStore creates a Redis-backed store. The caller owns the client
// lifecycle. A zero snapshotTTL keeps snapshots forever.
func NewRedisStore(client redisv9.Cmdable, snapshotTTL time.Duration, logger *zap.SugaredLogger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RedisStore{
		client:      client,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// Ping verifies the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PutSubscription validates and stores a subscription.
func (s *RedisStore) PutSubscription(ctx context.Context, sub notification.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("store/redis: invalid subscription: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, subscriptionKey(sub.Nickname), map[string]interface{}{
		"nickname":     sub.Nickname,
		"frequency":    sub.Frequency,
		"device_token": sub.DeviceToken,
		"endpoint":     sub.Endpoint,
		"city":         sub.City,
	})
	pipe.SAdd(ctx, subscriptionIDsKey, sub.Nickname)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store/redis: put subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription and its index entry.
func (s *RedisStore) DeleteSubscription(ctx context.Context, nickname string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, subscriptionKey(nickname))
	pipe.SRem(ctx, subscriptionIDsKey, nickname)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store/redis: delete subscription: %w", err)
	}
	return nil
}

// ListDueCandidates returns every stored subscription, ordered by nickname.
// Records that fail validation are logged and left out.
func (s *RedisStore) ListDueCandidates(ctx context.Context) ([]notification.Subscription, error) {
	ids, err := s.client.SMembers(ctx, subscriptionIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store/redis: list subscriptions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	pipe := s.client.Pipeline()
	cmds := make([]*redisv9.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, subscriptionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store/redis: load subscriptions: %w", err)
	}

	subs := make([]notification.Subscription, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			s.logger.Warnw("subscription index points at missing record", "nickname", ids[i])
			continue
		}
		sub := notification.Subscription{
			Nickname:    fields["nickname"],
			Frequency:   fields["frequency"],
			DeviceToken: fields["device_token"],
			Endpoint:    fields["endpoint"],
			City:        fields["city"],
		}
		if err := sub.Validate(); err != nil {
			s.logger.Warnw("skipping invalid subscription", "nickname", ids[i], "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// GetSnapshot returns the forecast snapshot of city for date.
func (s *RedisStore) GetSnapshot(ctx context.Context, city, date string) (weather.CityForecast, error) {
	val, err := s.client.Get(ctx, snapshotKey(city, date)).Result()
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return weather.CityForecast{}, weather.ErrSnapshotNotFound
		}
		return weather.CityForecast{}, fmt.Errorf("store/redis: get snapshot: %w", err)
	}

	var forecast weather.CityForecast
	if err := json.Unmarshal([]byte(val), &forecast); err != nil {
		return weather.CityForecast{}, fmt.Errorf("store/redis: decode snapshot: %w", err)
	}
	return forecast, nil
}

// CreateSnapshot writes forecast under (city, forecast.Date) unless it exists.
func (s *RedisStore) CreateSnapshot(ctx context.Context, city string, forecast weather.CityForecast) error {
	if forecast.Date == "" {
		return fmt.Errorf("store/redis: snapshot for %s has no date", city)
	}

	b, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("store/redis: encode snapshot: %w", err)
	}

	created, err := s.client.SetNX(ctx, snapshotKey(city, forecast.Date), b, s.snapshotTTL).Result()
	if err != nil {
		return fmt.Errorf("store/redis: create snapshot: %w", err)
	}
	if !created {
		return weather.ErrSnapshotExists
	}
	return nil
}
