package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/worker"

	natsadapter "github.com/yash1732/gigguard/internal/adapters/nats"
	"github.com/yash1732/gigguard/internal/adapters/postgres"
	temporaladapter "github.com/yash1732/gigguard/internal/adapters/temporal"
	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/usecases"
	"github.com/yash1732/gigguard/internal/pkg/config"
	"github.com/yash1732/gigguard/internal/pkg/logging"
	"github.com/yash1732/gigguard/internal/workflows"
)

// The escalator runs the escalation workflow worker and feeds it from the
// SOS event stream.
func main() {
	cfg, err := config.Load("gigguard-escalator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	// Connect to Temporal
	c, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("temporal: %v", err)
	}
	defer c.Close()

	// The escalator never resolves triggers, so it runs without an engine.
	sosSvc := usecases.NewSOSService(nil, postgres.NewSOSRepo(db), pub, nil)
	scheduler := temporaladapter.NewScheduler(c, cfg.Temporal.TaskQueue, cfg.Temporal.AckTimeout)

	err = sub.SubscribeTriggered(ctx, "escalator-triggered", func(ctx context.Context, b *domain.EmergencyBundle) error {
		return scheduler.Schedule(ctx, &domain.SOSEvent{
			ID:            b.SOSID,
			WorkerID:      b.WorkerID,
			Location:      domain.GeoPoint{Lat: b.WorkerLocation.Latitude, Lon: b.WorkerLocation.Longitude},
			EmergencyType: b.EmergencyType,
			Status:        b.Status,
			CreatedAt:     b.Timestamp,
		})
	})
	if err != nil {
		log.Fatalf("subscribe triggered: %v", err)
	}
	err = sub.SubscribeAcknowledged(ctx, "escalator-acknowledged", scheduler.Acknowledge)
	if err != nil {
		log.Fatalf("subscribe acknowledged: %v", err)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.EscalationWorkflow)
	w.RegisterActivity(&workflows.EscalationActivities{Store: sosSvc})

	slog.Info("escalator worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
