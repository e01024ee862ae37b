package ports

import (
	"context"

	"github.com/yash1732/gigguard/internal/core/domain"
)

// SOSEventRepository persists SOS events.
type SOSEventRepository interface {
	Insert(ctx context.Context, event *domain.SOSEvent) error
	GetByID(ctx context.Context, id string) (*domain.SOSEvent, error)
	ListByWorker(ctx context.Context, workerID string, offset, limit int) ([]domain.SOSEvent, int, error)
	// UpdateStatus moves an event to status. With from given, the write only
	// applies while the stored status is one of them; applied reports whether
	// it did. A missing event is domain.ErrNotFound.
	UpdateStatus(ctx context.Context, id string, status domain.SOSStatus, from ...domain.SOSStatus) (applied bool, err error)
	// FindActiveNear returns unacknowledged events within radiusMeters, nearest first.
	FindActiveNear(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.SOSEvent, error)
}
