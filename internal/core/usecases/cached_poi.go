package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/ports"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
)

// CachedPOIProvider is a read-through cache in front of a POIProvider.
type CachedPOIProvider struct {
	next  ports.POIProvider
	cache ports.CacheService
	ttl   int
}

// NewCachedPOIProvider wraps next. A nil cache disables caching.
func NewCachedPOIProvider(next ports.POIProvider, cache ports.CacheService, ttlSeconds int) *CachedPOIProvider {
	if ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	return &CachedPOIProvider{next: next, cache: cache, ttl: ttlSeconds}
}

// POICacheKey rounds the origin to 3 decimals (~110 m) so nearby triggers share entries.
func POICacheKey(category domain.Category, origin domain.GeoPoint, radiusMeters int) string {
	return fmt.Sprintf("poi:%s:%.3f:%.3f:%d", category, origin.Lat, origin.Lon, radiusMeters)
}

// Query implements ports.POIProvider. Empty results are not cached so a
// transient outage is not remembered as "no coverage".
func (p *CachedPOIProvider) Query(ctx context.Context, category domain.Category, origin domain.GeoPoint, radiusMeters int) []domain.POICandidate {
	if p.cache == nil {
		return p.next.Query(ctx, category, origin, radiusMeters)
	}

	key := POICacheKey(category, origin, radiusMeters)
	if data, err := p.cache.Get(ctx, key); err == nil {
		var cached []domain.POICandidate
		if err := json.Unmarshal(data, &cached); err == nil && len(cached) > 0 {
			metrics.CacheHits.WithLabelValues("poi").Inc()
			return cached
		}
	}
	metrics.CacheMisses.WithLabelValues("poi").Inc()

	found := p.next.Query(ctx, category, origin, radiusMeters)
	if len(found) > 0 {
		if data, err := json.Marshal(found); err == nil {
			_ = p.cache.Set(ctx, key, data, p.ttl)
		}
	}
	return found
}
