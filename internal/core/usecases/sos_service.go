package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/ports"
	"github.com/yash1732/gigguard/internal/pkg/logging"
)

// SOSService handles the SOS lifecycle around the resolution engine.
type SOSService struct {
	engine    *ResolutionEngine
	events    ports.SOSEventRepository
	publisher ports.EventPublisher
	escalator ports.EscalationScheduler
}

// NewSOSService creates a new SOSService. events, publisher and escalator may
// be nil; the corresponding side effects are then skipped.
func NewSOSService(
	engine *ResolutionEngine,
	events ports.SOSEventRepository,
	publisher ports.EventPublisher,
	escalator ports.EscalationScheduler,
) *SOSService {
	return &SOSService{
		engine:    engine,
		events:    events,
		publisher: publisher,
		escalator: escalator,
	}
}

// Trigger resolves an SOS and then records, publishes and schedules it.
// Side effects are best-effort: the bundle is returned even if they fail.
func (s *SOSService) Trigger(ctx context.Context, t domain.SOSTrigger) (*domain.EmergencyBundle, error) {
	bundle, err := s.engine.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	// The worker already has their answer; do not lose the record because
	// the HTTP request ended.
	bg := context.WithoutCancel(ctx)
	log := logging.FromContext(ctx).With("sos_id", bundle.SOSID)

	event := &domain.SOSEvent{
		ID:            bundle.SOSID,
		WorkerID:      bundle.WorkerID,
		Location:      domain.GeoPoint{Lat: bundle.WorkerLocation.Latitude, Lon: bundle.WorkerLocation.Longitude},
		EmergencyType: bundle.EmergencyType,
		Status:        bundle.Status,
		Bundle:        *bundle,
		CreatedAt:     bundle.Timestamp,
	}

	if s.events != nil {
		if err := s.events.Insert(bg, event); err != nil {
			log.Error("persist sos event", "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishTriggered(bg, bundle); err != nil {
			log.Error("publish sos triggered", "error", err)
		}
	}
	if s.escalator != nil {
		if err := s.escalator.Schedule(bg, event); err != nil {
			log.Error("schedule escalation", "error", err)
		}
	}
	return bundle, nil
}

// Nearby delegates a single-category lookup to the engine.
func (s *SOSService) Nearby(ctx context.Context, category domain.Category, origin domain.GeoPoint) ([]domain.POIRecord, error) {
	return s.engine.Nearby(ctx, category, origin)
}

// Get returns a stored SOS event.
func (s *SOSService) Get(ctx context.Context, id string) (*domain.SOSEvent, error) {
	if s.events == nil {
		return nil, domain.ErrNotFound
	}
	return s.events.GetByID(ctx, id)
}

// ListByWorker returns a page of a worker's events, newest first, and the total.
func (s *SOSService) ListByWorker(ctx context.Context, workerID string, offset, limit int) ([]domain.SOSEvent, int, error) {
	if !workerIDPattern.MatchString(workerID) {
		return nil, 0, &domain.ValidationError{Field: "worker_id", Reason: "invalid worker id"}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if s.events == nil {
		return []domain.SOSEvent{}, 0, nil
	}
	return s.events.ListByWorker(ctx, workerID, offset, limit)
}

// Acknowledge marks an SOS as handled and stops its escalation. Acknowledging
// an already acknowledged SOS is a no-op.
func (s *SOSService) Acknowledge(ctx context.Context, id string) (*domain.SOSEvent, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Status == domain.SOSStatusAcknowledged {
		return event, nil
	}

	applied, err := s.events.UpdateStatus(ctx, id, domain.SOSStatusAcknowledged,
		domain.SOSStatusActive, domain.SOSStatusEscalated)
	if err != nil {
		return nil, fmt.Errorf("acknowledge %s: %w", id, err)
	}
	if !applied {
		// Acknowledged by someone else since the read.
		return s.Get(ctx, id)
	}
	now := time.Now().UTC()
	event.Status = domain.SOSStatusAcknowledged
	event.AcknowledgedAt = &now
	event.Bundle.Status = domain.SOSStatusAcknowledged

	log := logging.FromContext(ctx).With("sos_id", id)
	if s.publisher != nil {
		if err := s.publisher.PublishAcknowledged(ctx, id); err != nil {
			log.Error("publish sos acknowledged", "error", err)
		}
	}
	if s.escalator != nil {
		if err := s.escalator.Acknowledge(ctx, id); err != nil {
			log.Warn("signal escalation workflow", "error", err)
		}
	}
	return event, nil
}

// MarkEscalated moves an active SOS to escalated. It reports false if the
// SOS was acknowledged, including when that happens concurrently.
func (s *SOSService) MarkEscalated(ctx context.Context, id string) (bool, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	switch event.Status {
	case domain.SOSStatusAcknowledged:
		return false, nil
	case domain.SOSStatusEscalated:
		return true, nil
	}
	applied, err := s.events.UpdateStatus(ctx, id, domain.SOSStatusEscalated, domain.SOSStatusActive)
	if err != nil {
		return false, fmt.Errorf("escalate %s: %w", id, err)
	}
	if applied {
		return true, nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return current.Status == domain.SOSStatusEscalated, nil
}

// RevertEscalation puts an escalated SOS back to active. An SOS acknowledged
// meanwhile keeps its status.
func (s *SOSService) RevertEscalation(ctx context.Context, id string) error {
	if s.events == nil {
		return domain.ErrNotFound
	}
	_, err := s.events.UpdateStatus(ctx, id, domain.SOSStatusActive, domain.SOSStatusEscalated)
	return err
}

// PublishEscalation announces an escalated SOS.
func (s *SOSService) PublishEscalation(ctx context.Context, id string) error {
	if s.publisher == nil {
		return errors.New("no event publisher configured")
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	event.Status = domain.SOSStatusEscalated
	event.Bundle.Status = domain.SOSStatusEscalated
	return s.publisher.PublishEscalated(ctx, event)
}

// ActiveNear lists unacknowledged SOS events around a point, nearest first.
func (s *SOSService) ActiveNear(ctx context.Context, origin domain.GeoPoint, radiusMeters float64, limit int) ([]domain.SOSEvent, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 || radiusMeters > 50000 {
		radiusMeters = 5000
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if s.events == nil {
		return []domain.SOSEvent{}, nil
	}
	return s.events.FindActiveNear(ctx, origin.Lat, origin.Lon, radiusMeters, limit)
}
