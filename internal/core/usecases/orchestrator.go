package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/ports"
	"github.com/yash1732/gigguard/internal/pkg/logging"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
	"github.com/yash1732/gigguard/internal/pkg/telemetry"
)

// FetchResult holds the joined output of one orchestration.
type FetchResult struct {
	Address    string
	Candidates map[domain.Category][]domain.POICandidate
}

// Orchestrator resolves several categories and the origin address in
// parallel and waits for all of them, or for the budget to run out.
type Orchestrator struct {
	search   *SearchStrategy
	geocoder ports.Geocoder
	budget   time.Duration
}

// NewOrchestrator creates an Orchestrator. budget bounds the whole fan-out;
// zero means tasks are bounded only by their own timeouts.
func NewOrchestrator(search *SearchStrategy, geocoder ports.Geocoder, budget time.Duration) *Orchestrator {
	return &Orchestrator{search: search, geocoder: geocoder, budget: budget}
}

// Fetch runs one task per category plus a reverse geocode. A failing task
// contributes an empty list (or the coordinate fallback address) and never
// affects the others. Tasks still running when the budget expires are
// abandoned and contribute the same defaults. If ctx itself is cancelled the partial result is
// discarded and ctx.Err() is returned.
func (o *Orchestrator) Fetch(ctx context.Context, origin domain.GeoPoint, categories []domain.Category) (*FetchResult, error) {
	runCtx := ctx
	if o.budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.budget)
		defer cancel()
	}

	var mu sync.Mutex
	found := make([][]domain.POICandidate, len(categories))
	address := origin.Label()

	var g errgroup.Group
	for i, category := range categories {
		g.Go(func() error {
			out := o.fetchCategory(runCtx, category, origin)
			mu.Lock()
			found[i] = out
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		addr := o.reverse(runCtx, origin)
		mu.Lock()
		address = addr
		mu.Unlock()
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-runCtx.Done():
		logging.FromContext(ctx).Warn("search budget exhausted, returning partial results")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	res := &FetchResult{
		Address:    address,
		Candidates: make(map[domain.Category][]domain.POICandidate, len(categories)),
	}
	for i, category := range categories {
		res.Candidates[category] = found[i]
	}
	return res, nil
}

func (o *Orchestrator) fetchCategory(ctx context.Context, category domain.Category, origin domain.GeoPoint) (out []domain.POICandidate) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanCategory)
	defer span.End()
	span.SetAttributes(attribute.String("category", string(category)))

	defer func() {
		if r := recover(); r != nil {
			metrics.CategoryTaskFailures.WithLabelValues(string(category)).Inc()
			span.SetStatus(codes.Error, fmt.Sprint(r))
			logging.FromContext(ctx).Error("category task failed, using empty result",
				"category", category, "panic", fmt.Sprint(r))
			out = nil
		}
	}()

	out = o.search.Search(ctx, category, origin)
	if ctx.Err() != nil && len(out) == 0 {
		logging.FromContext(ctx).Warn("category task cut off by deadline", "category", category)
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out
}

func (o *Orchestrator) reverse(ctx context.Context, origin domain.GeoPoint) (addr string) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanReverseLookup)
	defer span.End()

	fallback := origin.Label()
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("reverse geocode task failed", "panic", fmt.Sprint(r))
			addr = fallback
		}
	}()

	if o.geocoder == nil {
		return fallback
	}
	name, err := o.geocoder.Reverse(ctx, origin)
	if err != nil || name == "" {
		logging.FromContext(ctx).Warn("reverse geocode failed, using coordinates", "error", err)
		return fallback
	}
	return name
}
