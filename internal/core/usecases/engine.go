package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/pkg/geospatial"
	"github.com/yash1732/gigguard/internal/pkg/logging"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
	"github.com/yash1732/gigguard/internal/pkg/telemetry"
)

const (
	// DefaultEmergencyType is used when a trigger does not name one.
	DefaultEmergencyType = "general"

	maxMessageLen = 1000
)

var (
	workerIDPattern      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	emergencyTypePattern = regexp.MustCompile(`^[a-z][a-z_]{0,31}$`)
)

// ResolutionEngine turns an SOS trigger into an EmergencyBundle.
type ResolutionEngine struct {
	orchestrator    *Orchestrator
	search          *SearchStrategy
	ranker          *Ranker
	emergencyNumber string
	now             func() time.Time
}

// EngineOption customises a ResolutionEngine.
type EngineOption func(*ResolutionEngine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *ResolutionEngine) { e.now = now }
}

// NewResolutionEngine wires the orchestrator and ranker together.
func NewResolutionEngine(orchestrator *Orchestrator, search *SearchStrategy, ranker *Ranker, emergencyNumber string, opts ...EngineOption) *ResolutionEngine {
	e := &ResolutionEngine{
		orchestrator:    orchestrator,
		search:          search,
		ranker:          ranker,
		emergencyNumber: emergencyNumber,
		now:             time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ValidateTrigger checks t and fills in defaults. It performs no I/O.
func ValidateTrigger(t *domain.SOSTrigger) error {
	t.WorkerID = strings.TrimSpace(t.WorkerID)
	if !workerIDPattern.MatchString(t.WorkerID) {
		return &domain.ValidationError{Field: "worker_id", Reason: "must be 1-64 letters, digits, '.', '_' or '-'"}
	}
	if err := t.Location.Validate(); err != nil {
		return err
	}

	t.EmergencyType = strings.ToLower(strings.TrimSpace(t.EmergencyType))
	if t.EmergencyType == "" {
		t.EmergencyType = DefaultEmergencyType
	}
	if !emergencyTypePattern.MatchString(t.EmergencyType) {
		return &domain.ValidationError{Field: "emergency_type", Reason: "must be lowercase letters or '_', at most 32 characters"}
	}

	t.Message = strings.TrimSpace(t.Message)
	if utf8.RuneCountInString(t.Message) > maxMessageLen {
		return &domain.ValidationError{Field: "message", Reason: fmt.Sprintf("must be at most %d characters", maxMessageLen)}
	}
	return nil
}

// SOSID builds the correlation id for a trigger, e.g. SOS-W42-20260118093000.
func SOSID(workerID string, at time.Time) string {
	return "SOS-" + workerID + "-" + at.Format("20060102150405")
}

// Resolve validates the trigger, resolves all categories concurrently and
// assembles the bundle. Empty categories are a valid answer; only invalid
// input or a cancelled ctx produce an error.
func (e *ResolutionEngine) Resolve(ctx context.Context, t domain.SOSTrigger) (*domain.EmergencyBundle, error) {
	start := e.now()

	if err := ValidateTrigger(&t); err != nil {
		metrics.Resolutions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	sosID := SOSID(t.WorkerID, start)
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanResolve)
	defer span.End()
	span.SetAttributes(attribute.String("sos_id", sosID), attribute.String("emergency_type", t.EmergencyType))

	log := logging.FromContext(ctx).With("sos_id", sosID, "worker_id", t.WorkerID)
	ctx = logging.WithLogger(ctx, log)

	fetched, err := e.orchestrator.Fetch(ctx, t.Location, domain.RequestedCategories)
	if err != nil {
		metrics.Resolutions.WithLabelValues("cancelled").Inc()
		log.Warn("resolution abandoned", "error", err)
		return nil, fmt.Errorf("resolve %s: %w", sosID, err)
	}

	bundle := &domain.EmergencyBundle{
		SOSID:     sosID,
		WorkerID:  t.WorkerID,
		Timestamp: start,
		WorkerLocation: domain.WorkerLocation{
			Latitude:  t.Location.Lat,
			Longitude: t.Location.Lon,
			Address:   fetched.Address,
		},
		EmergencyType:   t.EmergencyType,
		Message:         t.Message,
		EmergencyNumber: e.emergencyNumber,
		Status:          domain.SOSStatusActive,
	}
	for _, category := range domain.RequestedCategories {
		ranked := e.ranker.Rank(t.Location, fetched.Candidates[category])
		metrics.CategoryResults.WithLabelValues(string(category)).Observe(float64(len(ranked)))
		bundle.SetCategory(category, ranked)
	}

	elapsed := e.now().Sub(start)
	bundle.ProcessingTimeMs = geospatial.Round(float64(elapsed.Microseconds())/1000, 2)
	metrics.Resolutions.WithLabelValues("ok").Inc()
	metrics.ResolutionDuration.Observe(elapsed.Seconds())

	log.Info("sos resolved",
		"hospitals", len(bundle.NearestHospitals),
		"police", len(bundle.NearestPolice),
		"pharmacies", len(bundle.NearestPharmacies),
		"processing_ms", bundle.ProcessingTimeMs,
	)
	return bundle, nil
}

// Nearby runs the expanding search for a single category and ranks it.
func (e *ResolutionEngine) Nearby(ctx context.Context, category domain.Category, origin domain.GeoPoint) ([]domain.POIRecord, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	found := e.search.Search(ctx, category, origin)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.ranker.Rank(origin, found), nil
}
