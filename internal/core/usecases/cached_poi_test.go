package usecases_test

import (
	"context"
	"testing"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/usecases"
)

func TestCachedPOIProvider_ReadThrough(t *testing.T) {
	p := &mockProvider{
		queryFn: func(ctx context.Context, c domain.Category, o domain.GeoPoint, r int) []domain.POICandidate {
			return []domain.POICandidate{{Name: "City Hospital", Category: c, Location: domain.GeoPoint{Lat: 28.62, Lon: 77.21}}}
		},
	}
	cache := newMockCache()
	cp := usecases.NewCachedPOIProvider(p, cache, 120)

	first := cp.Query(context.Background(), domain.CategoryHospital, delhi, 20000)
	// A trigger a few metres away shares the entry.
	nearby := domain.GeoPoint{Lat: 28.61392, Lon: 77.20903}
	second := cp.Query(context.Background(), domain.CategoryHospital, nearby, 20000)

	if len(p.calls) != 1 {
		t.Errorf("expected one upstream call, got %d", len(p.calls))
	}
	if len(first) != 1 || len(second) != 1 || second[0].Name != "City Hospital" {
		t.Errorf("unexpected results %+v / %+v", first, second)
	}
	if second[0].Location.Lat != 28.62 {
		t.Errorf("cached location lost: %+v", second[0].Location)
	}
	key := usecases.POICacheKey(domain.CategoryHospital, delhi, 20000)
	if key != "poi:hospital:28.614:77.209:20000" {
		t.Errorf("unexpected cache key %s", key)
	}
	if cache.ttls[key] != 120 {
		t.Errorf("expected ttl 120, got %d", cache.ttls[key])
	}
}

func TestCachedPOIProvider_EmptyNotCached(t *testing.T) {
	p := &mockProvider{}
	cache := newMockCache()
	cp := usecases.NewCachedPOIProvider(p, cache, 0)

	_ = cp.Query(context.Background(), domain.CategoryPolice, delhi, 20000)
	_ = cp.Query(context.Background(), domain.CategoryPolice, delhi, 20000)

	if len(p.calls) != 2 {
		t.Errorf("empty results must not be cached, got %d upstream calls", len(p.calls))
	}
	if len(cache.data) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(cache.data))
	}
}

func TestCachedPOIProvider_NilCache(t *testing.T) {
	p := &mockProvider{}
	cp := usecases.NewCachedPOIProvider(p, nil, 300)

	_ = cp.Query(context.Background(), domain.CategoryPharmacy, delhi, 50000)
	if len(p.calls) != 1 {
		t.Errorf("expected passthrough call, got %d", len(p.calls))
	}
}

func TestCachedPOIProvider_DistinctRadii(t *testing.T) {
	p := &mockProvider{
		queryFn: func(ctx context.Context, c domain.Category, o domain.GeoPoint, r int) []domain.POICandidate {
			return []domain.POICandidate{{Name: "P", Category: c, Location: o}}
		},
	}
	cp := usecases.NewCachedPOIProvider(p, newMockCache(), 300)

	_ = cp.Query(context.Background(), domain.CategoryPharmacy, delhi, 20000)
	_ = cp.Query(context.Background(), domain.CategoryPharmacy, delhi, 50000)
	if len(p.calls) != 2 {
		t.Errorf("expected separate entries per radius, got %d calls", len(p.calls))
	}
}
