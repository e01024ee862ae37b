package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SignalAcknowledged is sent to a running escalation when the SOS is handled.
const SignalAcknowledged = "acknowledged"

// Escalation outcomes.
const (
	OutcomeAcknowledged = "acknowledged"
	OutcomeEscalated    = "escalated"
)

// DefaultAckTimeout applies when EscalationInput.AckTimeout is zero.
const DefaultAckTimeout = 10 * time.Minute

// EscalationInput is the input for the escalation workflow.
type EscalationInput struct {
	SOSID      string
	WorkerID   string
	Lat        float64
	Lon        float64
	AckTimeout time.Duration
}

// WorkflowID is the deterministic workflow id for an SOS, so scheduling the
// same SOS twice reuses the running execution.
func WorkflowID(sosID string) string {
	return "sos-escalation-" + sosID
}

// EscalationWorkflow waits for an acknowledgement. If none arrives within
// AckTimeout the SOS is marked escalated and announced. If announcing fails
// the status is put back to active (saga compensation).
func EscalationWorkflow(ctx workflow.Context, input EscalationInput) (string, error) {
	logger := workflow.GetLogger(ctx)
	timeout := input.AckTimeout
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	logger.Info("Waiting for SOS acknowledgement", "sosID", input.SOSID, "timeout", timeout)

	acked := false
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	timer := workflow.NewTimer(timerCtx, timeout)

	sel := workflow.NewSelector(ctx)
	sel.AddReceive(workflow.GetSignalChannel(ctx, SignalAcknowledged), func(c workflow.ReceiveChannel, more bool) {
		var id string
		c.Receive(ctx, &id)
		acked = true
		cancelTimer()
	})
	sel.AddFuture(timer, func(f workflow.Future) {
		_ = f.Get(ctx, nil)
	})
	sel.Select(ctx)

	if acked {
		logger.Info("SOS acknowledged before timeout", "sosID", input.SOSID)
		return OutcomeAcknowledged, nil
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: flip the status unless it was acknowledged through another path
	var escalated bool
	if err := workflow.ExecuteActivity(ctx, "MarkEscalated", input.SOSID).Get(ctx, &escalated); err != nil {
		return "", err
	}
	if !escalated {
		logger.Info("SOS acknowledged in store, not escalating", "sosID", input.SOSID)
		return OutcomeAcknowledged, nil
	}

	// Step 2: announce
	if err := workflow.ExecuteActivity(ctx, "PublishEscalation", input.SOSID).Get(ctx, nil); err != nil {
		logger.Warn("escalation publish failed, compensating", "error", err)
		_ = workflow.ExecuteActivity(ctx, "RevertEscalation", input.SOSID).Get(ctx, nil)
		return "", err
	}

	logger.Info("SOS escalated", "sosID", input.SOSID, "workerID", input.WorkerID)
	return OutcomeEscalated, nil
}
