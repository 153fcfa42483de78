package gameconfig

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "rewards_config_cache_hits_total"})
	cacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "rewards_config_cache_miss_total"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMiss)
}

type cacheEntry struct {
	value     any
	updatedAt time.Time
}

// configCache is a TTL cache for the read-mostly configuration documents.
// Eventual consistency is fine here (the play gate never goes through it);
// singleflight keeps a cold key from stampeding the store.
type configCache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	ttl   time.Duration
	group singleflight.Group
}

func newConfigCache(ttl time.Duration) *configCache {
	return &configCache{
		items: make(map[string]cacheEntry),
		ttl:   ttl,
	}
}

func (c *configCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	if !ok || (c.ttl > 0 && time.Since(v.updatedAt) > c.ttl) {
		cacheMiss.Inc()
		return nil, false
	}
	cacheHits.Inc()
	return v.value, true
}

func (c *configCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry{value: value, updatedAt: time.Now()}
}

func (c *configCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// load returns the cached value or runs fill once per key across goroutines.
func (c *configCache) load(key string, fill func() (any, error)) (any, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := fill()
		if err != nil {
			return nil, err
		}
		c.set(key, v)
		return v, nil
	})
	return v, err
}
