// Package temporaladapter starts and signals SOS escalation workflows.
package temporaladapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/workflows"
)

// Scheduler implements ports.EscalationScheduler with a Temporal client.
type Scheduler struct {
	client     client.Client
	taskQueue  string
	ackTimeout time.Duration
}

// NewScheduler creates a Scheduler.
func NewScheduler(c client.Client, taskQueue string, ackTimeout time.Duration) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue, ackTimeout: ackTimeout}
}

// Schedule starts the escalation workflow for event. Scheduling an SOS
// that already has a workflow, running or closed, is a no-op.
func (s *Scheduler) Schedule(ctx context.Context, event *domain.SOSEvent) error {
	opts := client.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(event.ID),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, workflows.EscalationWorkflow, workflows.EscalationInput{
		SOSID:      event.ID,
		WorkerID:   event.WorkerID,
		Lat:        event.Location.Lat,
		Lon:        event.Location.Lon,
		AckTimeout: s.ackTimeout,
	})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start escalation %s: %w", event.ID, err)
	}
	return nil
}

// Acknowledge signals the running workflow. A workflow that has already
// finished is not an error.
func (s *Scheduler) Acknowledge(ctx context.Context, sosID string) error {
	err := s.client.SignalWorkflow(ctx, workflows.WorkflowID(sosID), "", workflows.SignalAcknowledged, sosID)
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("signal escalation %s: %w", sosID, err)
	}
	return nil
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}
