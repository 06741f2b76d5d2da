package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-notifier/internal/notification"
	"github.com/i474232898/weather-notifier/internal/weather"
)

// snapshotEntry is a stored forecast with its write time.
type snapshotEntry struct {
	forecast  weather.CityForecast
	createdAt time.Time
}

// snapshotHistory holds the date-ordered snapshots of one city.
type snapshotHistory struct {
	snapshots []snapshotEntry
}

// MemoryStore is a concurrency-safe in-memory weather.SnapshotStore.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city, value: history
	data map[string]*snapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per city
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

var _ weather.SnapshotStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*snapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// CreateSnapshot stores forecast under (city, forecast.Date) unless a snapshot
// for that pair already exists, then enforces retention.
func (s *MemoryStore) CreateSnapshot(_ context.Context, city string, forecast weather.CityForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[city]
	if !ok {
		history = &snapshotHistory{}
		s.data[city] = history
	}

	for _, e := range history.snapshots {
		if e.forecast.Date == forecast.Date {
			return weather.ErrSnapshotExists
		}
	}

	history.snapshots = append(history.snapshots, snapshotEntry{forecast: forecast, createdAt: s.now()})
	sort.SliceStable(history.snapshots, func(i, j int) bool {
		return history.snapshots[i].forecast.Date < history.snapshots[j].forecast.Date
	})

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.snapshots) > s.maxHistory {
		over := len(history.snapshots) - s.maxHistory
		history.snapshots = history.snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		kept := history.snapshots[:0]
		for _, e := range history.snapshots {
			if !e.createdAt.Before(cutoff) {
				kept = append(kept, e)
			}
		}
		history.snapshots = kept
	}
	return nil
}

// GetSnapshot returns the snapshot of city for date.
func (s *MemoryStore) GetSnapshot(_ context.Context, city, date string) (weather.CityForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[city]
	if !ok {
		return weather.CityForecast{}, weather.ErrSnapshotNotFound
	}
	for _, e := range history.snapshots {
		if e.forecast.Date != date {
			continue
		}
		if s.maxAge > 0 && s.now().Sub(e.createdAt) > s.maxAge {
			break
		}
		return e.forecast, nil
	}
	return weather.CityForecast{}, weather.ErrSnapshotNotFound
}

// MemorySubscriptions is an in-memory notification.SubscriptionSource.
type MemorySubscriptions struct {
	mu   sync.RWMutex
	subs map[string]notification.Subscription
}

var _ notification.SubscriptionSource = (*MemorySubscriptions)(nil)

// NewMemorySubscriptions creates a source seeded with subs.
func NewMemorySubscriptions(subs ...notification.Subscription) *MemorySubscriptions {
	m := &MemorySubscriptions{subs: make(map[string]notification.Subscription)}
	for _, sub := range subs {
		m.subs[sub.Nickname] = sub
	}
	return m
}

// PutSubscription adds or replaces a subscription after validating it.
func (m *MemorySubscriptions) PutSubscription(_ context.Context, sub notification.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Nickname] = sub
	return nil
}

// DeleteSubscription removes a subscription. Unknown nicknames are ignored.
func (m *MemorySubscriptions) DeleteSubscription(_ context.Context, nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, nickname)
	return nil
}

// ListDueCandidates returns every subscription, ordered by nickname.
func (m *MemorySubscriptions) ListDueCandidates(_ context.Context) ([]notification.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]notification.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}
