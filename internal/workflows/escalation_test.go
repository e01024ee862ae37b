package workflows_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.temporal.io/sdk/testsuite"

	"github.com/yash1732/gigguard/internal/workflows"
)

type fakeStore struct {
	mu         sync.Mutex
	escalateOK bool
	publishErr error
	marked     int
	published  int
	reverted   int
}

func (f *fakeStore) MarkEscalated(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked++
	return f.escalateOK, nil
}

func (f *fakeStore) PublishEscalation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published++
	return f.publishErr
}

func (f *fakeStore) RevertEscalation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverted++
	return nil
}

var input = workflows.EscalationInput{
	SOSID:      "SOS-W42-20260118093000",
	WorkerID:   "W42",
	Lat:        28.6139,
	Lon:        77.2090,
	AckTimeout: 10 * time.Minute,
}

func newEnv(store *fakeStore) *testsuite.TestWorkflowEnvironment {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.EscalationWorkflow)
	env.RegisterActivity(&workflows.EscalationActivities{Store: store})
	return env
}

func TestEscalationWorkflow_AcknowledgedInTime(t *testing.T) {
	store := &fakeStore{escalateOK: true}
	env := newEnv(store)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.SignalAcknowledged, input.SOSID)
	}, time.Minute)

	env.ExecuteWorkflow(workflows.EscalationWorkflow, input)

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var outcome string
	if err := env.GetWorkflowResult(&outcome); err != nil {
		t.Fatalf("result: %v", err)
	}
	if outcome != workflows.OutcomeAcknowledged {
		t.Errorf("expected %s, got %s", workflows.OutcomeAcknowledged, outcome)
	}
	if store.marked != 0 || store.published != 0 {
		t.Errorf("no activity expected after ack, got marked=%d published=%d", store.marked, store.published)
	}
}

func TestEscalationWorkflow_TimeoutEscalates(t *testing.T) {
	store := &fakeStore{escalateOK: true}
	env := newEnv(store)

	env.ExecuteWorkflow(workflows.EscalationWorkflow, input)

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var outcome string
	_ = env.GetWorkflowResult(&outcome)
	if outcome != workflows.OutcomeEscalated {
		t.Errorf("expected %s, got %s", workflows.OutcomeEscalated, outcome)
	}
	if store.marked != 1 || store.published != 1 || store.reverted != 0 {
		t.Errorf("unexpected activity counts %+v", store)
	}
}

func TestEscalationWorkflow_AcknowledgedInStore(t *testing.T) {
	store := &fakeStore{escalateOK: false}
	env := newEnv(store)

	env.ExecuteWorkflow(workflows.EscalationWorkflow, input)

	var outcome string
	if err := env.GetWorkflowResult(&outcome); err != nil {
		t.Fatalf("result: %v", err)
	}
	if outcome != workflows.OutcomeAcknowledged {
		t.Errorf("expected %s, got %s", workflows.OutcomeAcknowledged, outcome)
	}
	if store.published != 0 {
		t.Errorf("must not publish when already acknowledged, got %d", store.published)
	}
}

func TestEscalationWorkflow_PublishFailureCompensates(t *testing.T) {
	store := &fakeStore{escalateOK: true, publishErr: errors.New("nats unavailable")}
	env := newEnv(store)

	env.ExecuteWorkflow(workflows.EscalationWorkflow, input)

	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("expected workflow error")
	}
	if store.reverted != 1 {
		t.Errorf("expected status reverted once, got %d", store.reverted)
	}
	if store.published != 3 {
		t.Errorf("expected publish retried 3 times, got %d", store.published)
	}
}

func TestWorkflowID(t *testing.T) {
	if got := workflows.WorkflowID("SOS-W42-1"); got != "sos-escalation-SOS-W42-1" {
		t.Errorf("unexpected workflow id %s", got)
	}
}
