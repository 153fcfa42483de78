package progression

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var (
	tierCacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "rewards_tier_cache_hits_total"})
	tierCacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "rewards_tier_cache_miss_total"})
)

func init() {
	prometheus.MustRegister(tierCacheHits, tierCacheMiss)
}

// tierCache holds the tier ladder in memory. The ladder changes only on
// admin writes, so a short TTL plus explicit invalidation is enough.
type tierCache struct {
	mu        sync.RWMutex
	tiers     []Tier
	updatedAt time.Time
	ttl       time.Duration
	group     singleflight.Group
}

func newTierCache(ttl time.Duration) *tierCache {
	return &tierCache{ttl: ttl}
}

func (c *tierCache) load(fill func() ([]Tier, error)) ([]Tier, error) {
	c.mu.RLock()
	if c.tiers != nil && time.Since(c.updatedAt) < c.ttl {
		tiers := c.tiers
		c.mu.RUnlock()
		tierCacheHits.Inc()
		return tiers, nil
	}
	c.mu.RUnlock()
	tierCacheMiss.Inc()

	v, err, _ := c.group.Do("tiers", func() (any, error) {
		tiers, err := fill()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tiers = tiers
		c.updatedAt = time.Now()
		c.mu.Unlock()
		return tiers, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Tier), nil
}

func (c *tierCache) invalidate() {
	c.mu.Lock()
	c.tiers = nil
	c.mu.Unlock()
}
