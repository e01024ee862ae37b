package workflows

import (
	"context"
	"fmt"

	"github.com/yash1732/gigguard/internal/pkg/logging"
)

// EscalationStore is the part of the SOS service the activities need.
type EscalationStore interface {
	MarkEscalated(ctx context.Context, sosID string) (bool, error)
	PublishEscalation(ctx context.Context, sosID string) error
	RevertEscalation(ctx context.Context, sosID string) error
}

// EscalationActivities holds the activity implementations for the escalation workflow.
type EscalationActivities struct {
	Store EscalationStore
}

// MarkEscalated sets the SOS status to escalated. It returns false if the
// SOS has been acknowledged meanwhile.
func (a *EscalationActivities) MarkEscalated(ctx context.Context, sosID string) (bool, error) {
	ok, err := a.Store.MarkEscalated(ctx, sosID)
	if err != nil {
		return false, fmt.Errorf("mark escalated %s: %w", sosID, err)
	}
	return ok, nil
}

// PublishEscalation announces the escalated SOS to subscribers.
func (a *EscalationActivities) PublishEscalation(ctx context.Context, sosID string) error {
	if err := a.Store.PublishEscalation(ctx, sosID); err != nil {
		return fmt.Errorf("publish escalation %s: %w", sosID, err)
	}
	return nil
}

// RevertEscalation puts the SOS back to active (saga compensation / rollback).
func (a *EscalationActivities) RevertEscalation(ctx context.Context, sosID string) error {
	if err := a.Store.RevertEscalation(ctx, sosID); err != nil {
		return fmt.Errorf("revert escalation %s: %w", sosID, err)
	}
	logging.FromContext(ctx).Info("escalation reverted", "sos_id", sosID)
	return nil
}
