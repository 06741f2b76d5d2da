package providers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
)

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// GeocodeFunc resolves a city into coordinates.
type GeocodeFunc func(city string) (Coordinates, error)

// Geocoder resolves city identifiers into coordinates for the providers that
// only accept lat/lon, and remembers every answer for the life of the process.
type Geocoder struct {
	lookup GeocodeFunc

	mu    sync.RWMutex
	cache map[string]Coordinates
}

var errGeocoderDisabled = errors.New("geocoder api key is not configured")

// NewGeocoder creates a Geocoder backed by the Google geocoding API.
// An empty apiKey yields a Geocoder that always fails.
func NewGeocoder(apiKey string) *Geocoder {
	if apiKey == "" {
		return NewGeocoderFunc(func(string) (Coordinates, error) {
			return Coordinates{}, errGeocoderDisabled
		})
	}
	geocoder.ApiKey = apiKey
	return NewGeocoderFunc(googleGeocode)
}

// NewGeocoderFunc creates a Geocoder around an arbitrary lookup function.
func NewGeocoderFunc(fn GeocodeFunc) *Geocoder {
	return &Geocoder{
		lookup: fn,
		cache:  make(map[string]Coordinates),
	}
}

// Locate returns the coordinates of city.
func (g *Geocoder) Locate(city string) (Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(city))

	g.mu.RLock()
	c, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := g.lookup(city)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode %q: %w", city, err)
	}

	g.mu.Lock()
	g.cache[key] = c
	g.mu.Unlock()
	return c, nil
}

// googleGeocode accepts "City" or "City,Country".
func googleGeocode(city string) (Coordinates, error) {
	addr := geocoder.Address{City: city}
	if name, country, ok := strings.Cut(city, ","); ok {
		addr.City = strings.TrimSpace(name)
		addr.Country = strings.TrimSpace(country)
	}

	loc, err := geocoder.Geocoding(addr)
	if err != nil {
		return Coordinates{}, err
	}
	return Coordinates{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}
