package weather

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoProviders is returned when the Service has no providers configured.
var ErrNoProviders = errors.New("no weather providers configured")

// Service is the live forecast Source. It asks providers in priority order and
// returns the first forecast that comes back.
type Service struct {
	providers []Provider
	logger    *zap.SugaredLogger
}

// NewService creates a new Service.
func NewService(providers []Provider, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		providers: providers,
		logger:    logger,
	}
}

// FetchForecast tries each provider in turn. The returned error joins every
// provider failure when none succeeded.
func (s *Service) FetchForecast(ctx context.Context, city string) (CityForecast, error) {
	if len(s.providers) == 0 {
		return CityForecast{}, ErrNoProviders
	}

	var errs []error
	for _, p := range s.providers {
		if err := ctx.Err(); err != nil {
			return CityForecast{}, err
		}

		forecast, err := p.FetchForecast(ctx, city)
		if err != nil {
			s.logger.Debugw("provider forecast failed", "provider", p.Name(), "city", city, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if len(forecast.Forecast) == 0 {
			errs = append(errs, fmt.Errorf("%s: empty forecast", p.Name()))
			continue
		}
		return forecast, nil
	}

	return CityForecast{}, fmt.Errorf("fetch forecast for %s: %w", city, errors.Join(errs...))
}
