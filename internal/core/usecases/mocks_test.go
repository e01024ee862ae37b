package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/yash1732/gigguard/internal/core/domain"
)

var delhi = domain.GeoPoint{Lat: 28.6139, Lon: 77.2090}

// --- Mock POIProvider ---

type providerCall struct {
	Category domain.Category
	Radius   int
}

type mockProvider struct {
	mu      sync.Mutex
	calls   []providerCall
	queryFn func(ctx context.Context, category domain.Category, origin domain.GeoPoint, radius int) []domain.POICandidate
}

func (m *mockProvider) Query(ctx context.Context, category domain.Category, origin domain.GeoPoint, radius int) []domain.POICandidate {
	m.mu.Lock()
	m.calls = append(m.calls, providerCall{Category: category, Radius: radius})
	m.mu.Unlock()
	if m.queryFn != nil {
		return m.queryFn(ctx, category, origin, radius)
	}
	return nil
}

func (m *mockProvider) callsFor(category domain.Category) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var radii []int
	for _, c := range m.calls {
		if c.Category == category {
			radii = append(radii, c.Radius)
		}
	}
	return radii
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	reverseFn func(ctx context.Context, p domain.GeoPoint) (string, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, p domain.GeoPoint) (string, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, p)
	}
	return "", errors.New("not configured")
}

// --- Mock SOSEventRepository ---

type mockSOSRepo struct {
	mu             sync.Mutex
	inserted       []domain.SOSEvent
	statusUpdates  map[string]domain.SOSStatus
	insertFn       func(ctx context.Context, e *domain.SOSEvent) error
	getByIDFn      func(ctx context.Context, id string) (*domain.SOSEvent, error)
	listFn         func(ctx context.Context, workerID string, offset, limit int) ([]domain.SOSEvent, int, error)
	updateStatusFn func(ctx context.Context, id string, s domain.SOSStatus, from []domain.SOSStatus) (bool, error)
	findActiveFn   func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.SOSEvent, error)
}

func (m *mockSOSRepo) Insert(ctx context.Context, e *domain.SOSEvent) error {
	m.mu.Lock()
	m.inserted = append(m.inserted, *e)
	m.mu.Unlock()
	if m.insertFn != nil {
		return m.insertFn(ctx, e)
	}
	return nil
}

func (m *mockSOSRepo) GetByID(ctx context.Context, id string) (*domain.SOSEvent, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSOSRepo) ListByWorker(ctx context.Context, workerID string, offset, limit int) ([]domain.SOSEvent, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, workerID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockSOSRepo) UpdateStatus(ctx context.Context, id string, s domain.SOSStatus, from ...domain.SOSStatus) (bool, error) {
	applied := true
	if m.updateStatusFn != nil {
		var err error
		if applied, err = m.updateStatusFn(ctx, id, s, from); err != nil {
			return false, err
		}
	}
	if applied {
		m.mu.Lock()
		if m.statusUpdates == nil {
			m.statusUpdates = make(map[string]domain.SOSStatus)
		}
		m.statusUpdates[id] = s
		m.mu.Unlock()
	}
	return applied, nil
}

func (m *mockSOSRepo) FindActiveNear(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.SOSEvent, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu           sync.Mutex
	triggered    []string
	acknowledged []string
	escalated    []string
	err          error
}

func (m *mockPublisher) PublishTriggered(ctx context.Context, b *domain.EmergencyBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = append(m.triggered, b.SOSID)
	return m.err
}

func (m *mockPublisher) PublishAcknowledged(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acknowledged = append(m.acknowledged, id)
	return m.err
}

func (m *mockPublisher) PublishEscalated(ctx context.Context, e *domain.SOSEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalated = append(m.escalated, e.ID)
	return m.err
}

// --- Mock EscalationScheduler ---

type mockEscalator struct {
	scheduled    []string
	acknowledged []string
	err          error
}

func (m *mockEscalator) Schedule(ctx context.Context, e *domain.SOSEvent) error {
	m.scheduled = append(m.scheduled, e.ID)
	return m.err
}

func (m *mockEscalator) Acknowledge(ctx context.Context, id string) error {
	m.acknowledged = append(m.acknowledged, id)
	return m.err
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), ttls: make(map[string]int)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
