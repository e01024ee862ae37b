package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/pkg/geospatial"
)

// SOSRepo implements ports.SOSEventRepository with pgx.
type SOSRepo struct {
	db *DB
}

// NewSOSRepo creates a new SOSRepo.
func NewSOSRepo(db *DB) *SOSRepo {
	return &SOSRepo{db: db}
}

const sosColumns = `sos_id, worker_id, lat, lon, emergency_type, status, bundle,
		       created_at, acknowledged_at, escalated_at`

// Insert stores a newly resolved SOS. Re-inserting an id is a no-op.
func (r *SOSRepo) Insert(ctx context.Context, e *domain.SOSEvent) error {
	bundle, err := json.Marshal(e.Bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO sos_events (sos_id, worker_id, lat, lon, emergency_type, status, bundle, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sos_id) DO NOTHING
	`, e.ID, e.WorkerID, e.Location.Lat, e.Location.Lon, e.EmergencyType, string(e.Status), bundle, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sos %s: %w", e.ID, err)
	}
	return nil
}

// GetByID returns one event or domain.ErrNotFound.
func (r *SOSRepo) GetByID(ctx context.Context, id string) (*domain.SOSEvent, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+sosColumns+` FROM sos_events WHERE sos_id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByWorker returns a worker's events newest first, and the total count.
func (r *SOSRepo) ListByWorker(ctx context.Context, workerID string, offset, limit int) ([]domain.SOSEvent, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sos_events WHERE worker_id = $1`, workerID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+sosColumns+`
		FROM sos_events
		WHERE worker_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, workerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]domain.SOSEvent, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *e)
	}
	return events, total, rows.Err()
}

// UpdateStatus moves an event to status and stamps the matching timestamp.
// When from is non-empty the row is only touched while its status is in from.
func (r *SOSRepo) UpdateStatus(ctx context.Context, id string, status domain.SOSStatus, from ...domain.SOSStatus) (bool, error) {
	if !status.Valid() {
		return false, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	allowed := make([]string, len(from))
	for i, f := range from {
		allowed[i] = string(f)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE sos_events
		SET status = $2,
		    bundle = jsonb_set(bundle, '{status}', to_jsonb($2::text)),
		    acknowledged_at = CASE WHEN $2 = 'acknowledged' THEN now() ELSE acknowledged_at END,
		    escalated_at    = CASE WHEN $2 = 'escalated'    THEN now()
		                           WHEN $2 = 'active'       THEN NULL
		                           ELSE escalated_at END
		WHERE sos_id = $1
		  AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))
	`, id, string(status), allowed)
	if err != nil {
		return false, fmt.Errorf("update sos %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sos_events WHERE sos_id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("update sos %s: %w", id, err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

// FindActiveNear prefilters on a bounding box in SQL and orders by
// great-circle distance in Go.
func (r *SOSRepo) FindActiveNear(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.SOSEvent, error) {
	box := geospatial.BoundingBox(lat, lon, radiusMeters)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+sosColumns+`
		FROM sos_events
		WHERE status <> 'acknowledged'
		  AND lat BETWEEN $1 AND $3
		  AND lon BETWEEN $2 AND $4
	`, box.MinLat, box.MinLon, box.MaxLat, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type hit struct {
		event domain.SOSEvent
		dist  float64
	}
	var hits []hit
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		d := geospatial.Haversine(lat, lon, e.Location.Lat, e.Location.Lon)
		if d <= radiusMeters {
			hits = append(hits, hit{event: *e, dist: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	events := make([]domain.SOSEvent, len(hits))
	for i, h := range hits {
		events[i] = h.event
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*domain.SOSEvent, error) {
	var (
		e      domain.SOSEvent
		status string
		bundle []byte
	)
	if err := row.Scan(
		&e.ID, &e.WorkerID, &e.Location.Lat, &e.Location.Lon, &e.EmergencyType, &status, &bundle,
		&e.CreatedAt, &e.AcknowledgedAt, &e.EscalatedAt,
	); err != nil {
		return nil, err
	}
	e.Status = domain.SOSStatus(status)
	if err := json.Unmarshal(bundle, &e.Bundle); err != nil {
		return nil, fmt.Errorf("decode bundle for %s: %w", e.ID, err)
	}
	return &e, nil
}
