package signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/match-predictor/internal/metrics"
	"github.com/yourusername/match-predictor/internal/models"
)

// CachingProvider decorates a Provider with an in-memory TTL cache keyed by
// fixture. Signal feeds are slow-moving, so short TTLs keep evaluations cheap
// without staleness risk.
type CachingProvider struct {
	inner Provider
	cache *cache.Cache
	ttl   time.Duration

	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewCachingProvider wraps a provider with a TTL cache.
func NewCachingProvider(inner Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{
		inner: inner,
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Name identifies the provider in logs.
func (p *CachingProvider) Name() string {
	return p.inner.Name() + "-cached"
}

// Fetch returns cached readings when fresh, otherwise asks the inner
// provider. Errors are never cached.
func (p *CachingProvider) Fetch(ctx context.Context, fixture *models.Fixture) ([]Reading, error) {
	key := fixtureKey(fixture)

	if cached, found := p.cache.Get(key); found {
		if readings, ok := cached.([]Reading); ok {
			p.recordLookup(true)
			return readings, nil
		}
	}
	p.recordLookup(false)

	readings, err := p.inner.Fetch(ctx, fixture)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, readings, p.ttl)
	return readings, nil
}

// recordLookup updates the hit/miss counters and exports the running hit
// ratio.
func (p *CachingProvider) recordLookup(hit bool) {
	p.mu.Lock()
	if hit {
		p.hitCount++
	} else {
		p.missCount++
	}
	hits, misses := p.hitCount, p.missCount
	p.mu.Unlock()

	if total := hits + misses; total > 0 {
		metrics.UpdateSignalCacheHitRatio(float64(hits) / float64(total))
	}
}

// Clear flushes the cache.
func (p *CachingProvider) Clear() {
	p.cache.Flush()

	p.mu.Lock()
	p.hitCount = 0
	p.missCount = 0
	p.mu.Unlock()
}

// Stats returns cache statistics
func (p *CachingProvider) Stats() (hits, misses uint64, ratio float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	hits = p.hitCount
	misses = p.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached fixtures.
func (p *CachingProvider) ItemCount() int {
	return p.cache.ItemCount()
}

func fixtureKey(fixture *models.Fixture) string {
	return fmt.Sprintf("%s|%s|%s|%d", fixture.League, fixture.HomeTeam, fixture.AwayTeam, fixture.Kickoff.Unix())
}
