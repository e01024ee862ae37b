package ports

import (
	"context"

	"github.com/yash1732/gigguard/internal/core/domain"
)

// POIProvider queries an external point-of-interest service for one
// category around origin. Implementations swallow transient failures and
// return an empty slice once their retry budget is spent.
type POIProvider interface {
	Query(ctx context.Context, category domain.Category, origin domain.GeoPoint, radiusMeters int) []domain.POICandidate
}

// Geocoder resolves a coordinate to a human-readable address.
type Geocoder interface {
	Reverse(ctx context.Context, p domain.GeoPoint) (string, error)
}

// EventPublisher publishes SOS lifecycle events to a message broker.
type EventPublisher interface {
	PublishTriggered(ctx context.Context, bundle *domain.EmergencyBundle) error
	PublishAcknowledged(ctx context.Context, sosID string) error
	PublishEscalated(ctx context.Context, event *domain.SOSEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EscalationScheduler starts and signals the acknowledgement-timeout workflow.
type EscalationScheduler interface {
	Schedule(ctx context.Context, event *domain.SOSEvent) error
	Acknowledge(ctx context.Context, sosID string) error
}
