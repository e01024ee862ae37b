// Package overpass queries the OpenStreetMap Overpass API for emergency
// points of interest. OSM tag vocabulary stays inside this package; callers
// only see domain categories and candidates.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/pkg/logging"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
	"github.com/yash1732/gigguard/internal/pkg/telemetry"
)

const (
	providerName = "overpass"

	// serverTimeout is the [timeout:N] hint sent inside the query, in seconds.
	serverTimeout = 15

	maxBodyBytes = 16 << 20
)

var categoryTags = map[domain.Category]string{
	domain.CategoryHospital: "amenity=hospital",
	domain.CategoryPolice:   "amenity=police",
	domain.CategoryPharmacy: "amenity=pharmacy",
	domain.CategoryClinic:   "amenity=clinic",
}

// Tag returns the OSM tag filter for c. Unknown categories map to hospitals.
func Tag(c domain.Category) string {
	if t, ok := categoryTags[c]; ok {
		return t
	}
	return categoryTags[domain.CategoryHospital]
}

// Config configures a Client.
type Config struct {
	URL         string
	UserAgent   string
	Timeout     time.Duration // per attempt
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client implements ports.POIProvider against an Overpass interpreter.
// It is safe for concurrent use; the underlying *http.Client is shared.
type Client struct {
	http *http.Client
	cfg  Config
}

// New creates a Client. httpClient should be shared across requests.
func New(httpClient *http.Client, cfg Config) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{http: httpClient, cfg: cfg}
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// statusError is a non-200 reply from the interpreter.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("overpass: HTTP %d", e.code)
}

// Query returns the features tagged for category within radiusMeters of
// origin. Transient failures are retried; once attempts are exhausted the
// result is empty.
func (c *Client) Query(ctx context.Context, category domain.Category, origin domain.GeoPoint, radiusMeters int) []domain.POICandidate {
	if radiusMeters <= 0 {
		return nil
	}

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanOverpassQuery)
	defer span.End()
	span.SetAttributes(
		attribute.String("category", string(category)),
		attribute.Int("radius_m", radiusMeters),
	)

	log := logging.FromContext(ctx).With("provider", providerName, "category", category, "radius_m", radiusMeters)
	query := BuildQuery(Tag(category), origin, radiusMeters)
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	}()

	var elements []element
	attempt := 0
	op := func() error {
		attempt++
		els, err := c.fetch(ctx, query)
		if err != nil {
			return err
		}
		elements = els
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryDelay), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		metrics.ProviderRetries.WithLabelValues(providerName).Inc()
		log.Warn("overpass attempt failed, retrying", "attempt", attempt, "wait", wait.String(), "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		outcome := "exhausted"
		var se *statusError
		if errors.As(err, &se) && !retryable(se.code) {
			outcome = "rejected"
		}
		metrics.ProviderRequests.WithLabelValues(providerName, outcome).Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Warn("overpass query gave up", "attempts", attempt, "outcome", outcome, "error", err)
		return nil
	}

	candidates := toCandidates(category, elements)
	outcome := "ok"
	if len(candidates) == 0 {
		outcome = "empty"
	}
	metrics.ProviderRequests.WithLabelValues(providerName, outcome).Inc()
	span.SetAttributes(attribute.Int("results", len(candidates)))
	log.Debug("overpass query done", "attempts", attempt, "results", len(candidates))
	return candidates
}

// fetch performs one attempt. Errors wrapped in backoff.Permanent are not retried.
func (c *Client) fetch(ctx context.Context, query string) ([]element, error) {
	attemptCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("POST %s: %w", c.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		se := &statusError{code: resp.StatusCode}
		if retryable(resp.StatusCode) {
			return nil, se
		}
		return nil, backoff.Permanent(se)
	}

	var r response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&r); err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return r.Elements, nil
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// BuildQuery renders the Overpass QL for nodes and ways carrying tag.
func BuildQuery(tag string, origin domain.GeoPoint, radiusMeters int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radiusMeters, formatCoord(origin.Lat), formatCoord(origin.Lon))
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", serverTimeout)
	fmt.Fprintf(&b, "  node[%s]%s;\n", tag, around)
	fmt.Fprintf(&b, "  way[%s]%s;\n", tag, around)
	b.WriteString(");\nout center;\n")
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// toCandidates keeps elements with a point or a center; others are dropped.
func toCandidates(category domain.Category, elements []element) []domain.POICandidate {
	out := make([]domain.POICandidate, 0, len(elements))
	for _, el := range elements {
		var loc domain.GeoPoint
		switch {
		case el.Lat != nil && el.Lon != nil:
			loc = domain.GeoPoint{Lat: *el.Lat, Lon: *el.Lon}
		case el.Center != nil:
			loc = domain.GeoPoint{Lat: el.Center.Lat, Lon: el.Center.Lon}
		default:
			continue
		}

		phone := el.Tags["phone"]
		if phone == "" {
			phone = el.Tags["contact:phone"]
		}
		out = append(out, domain.POICandidate{
			Name:     el.Tags["name"],
			Category: category,
			Location: loc,
			Street:   el.Tags["addr:street"],
			City:     el.Tags["addr:city"],
			Phone:    phone,
		})
	}
	return out
}
