package weather

import "sync"

// Cache memoizes resolved forecasts by city for the duration of one dispatch run.
// It has no eviction; callers drop it when the run ends.
type Cache struct {
	mu   sync.RWMutex
	data map[string]CityForecast
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]CityForecast)}
}

// Get returns the cached forecast for city, if any.
func (c *Cache) Get(city string) (CityForecast, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.data[city]
	return f, ok
}

// Set stores the forecast for city, replacing any previous value.
func (c *Cache) Set(city string, forecast CityForecast) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[city] = forecast
}

// Len returns the number of cached cities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}
