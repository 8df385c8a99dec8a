package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// LogisticsRepository implements logistics.Repository.
type LogisticsRepository struct {
	pool *pgxpool.Pool
}

func NewLogisticsRepository(pool *pgxpool.Pool) *LogisticsRepository {
	return &LogisticsRepository{pool: pool}
}

// eventColumn maps a milestone onto its trail column. Columns are fixed at
// schema time so the identifier interpolation below is safe.
func eventColumn(e logistics.Event) string {
	switch e {
	case logistics.EventReceived:
		return "received_at"
	case logistics.EventPickedUp:
		return "picked_up_at"
	case logistics.EventWorkStarted:
		return "work_started_at"
	case logistics.EventReadyForReturn:
		return "ready_for_return_at"
	case logistics.EventReturned:
		return "returned_at"
	}
	return ""
}

// UpsertPlan creates or revises the plan. The freeze guard re-checks the
// trail inside the statement so a RECEIVED milestone landing after the
// caller's read still wins.
func (r *LogisticsRepository) UpsertPlan(ctx context.Context, plan *logistics.Plan) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO logistics_plans
		(request_id, pickup_required, return_required, pickup_address, return_address,
		 window_start, window_end, contact_name, contact_phone, created_at, updated_at)
		SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
		WHERE NOT EXISTS (
			SELECT 1 FROM logistics_trails
			WHERE request_id=$1 AND received_at IS NOT NULL
		)
		ON CONFLICT (request_id) DO UPDATE SET
			pickup_required=EXCLUDED.pickup_required,
			return_required=EXCLUDED.return_required,
			pickup_address=EXCLUDED.pickup_address,
			return_address=EXCLUDED.return_address,
			window_start=EXCLUDED.window_start,
			window_end=EXCLUDED.window_end,
			contact_name=EXCLUDED.contact_name,
			contact_phone=EXCLUDED.contact_phone,
			updated_at=EXCLUDED.updated_at
		WHERE NOT EXISTS (
			SELECT 1 FROM logistics_trails
			WHERE request_id=EXCLUDED.request_id AND received_at IS NOT NULL
		)
	`, plan.RequestID, plan.PickupRequired, plan.ReturnRequired, plan.PickupAddress, plan.ReturnAddress,
		plan.WindowStart, plan.WindowEnd, plan.ContactName, plan.ContactPhone, plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return request.ErrConflict
	}
	return nil
}

func (r *LogisticsRepository) GetPlan(ctx context.Context, requestID uuid.UUID) (*logistics.Plan, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, request_id, pickup_required, return_required, pickup_address, return_address,
		       window_start, window_end, contact_name, contact_phone, created_at, updated_at
		FROM logistics_plans WHERE request_id=$1
	`, requestID)
	var p logistics.Plan
	err := row.Scan(&p.ID, &p.RequestID, &p.PickupRequired, &p.ReturnRequired, &p.PickupAddress, &p.ReturnAddress,
		&p.WindowStart, &p.WindowEnd, &p.ContactName, &p.ContactPhone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *LogisticsRepository) GetTrail(ctx context.Context, requestID uuid.UUID) (*logistics.Trail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, request_id, received_at, picked_up_at, work_started_at, ready_for_return_at, returned_at, notes, updated_at
		FROM logistics_trails WHERE request_id=$1
	`, requestID)
	var t logistics.Trail
	var notes []byte
	err := row.Scan(&t.ID, &t.RequestID, &t.ReceivedAt, &t.PickedUpAt, &t.WorkStartedAt, &t.ReadyForReturnAt, &t.ReturnedAt, &notes, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &t.Notes); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// RecordEvent stamps the milestone column once. The UPDATE re-asserts "column
// empty, predecessor populated" so concurrent writers cannot both land.
func (r *LogisticsRepository) RecordEvent(ctx context.Context, requestID uuid.UUID, e logistics.Event, ts time.Time, note *string) error {
	col := eventColumn(e)
	if col == "" {
		return logistics.ErrUnknownEvent
	}

	// Make sure the trail row exists before guarding on its columns.
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO logistics_trails (request_id, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (request_id) DO NOTHING
	`, requestID, ts); err != nil {
		return err
	}

	notePatch := []byte("{}")
	if note != nil && *note != "" {
		b, err := json.Marshal(map[string]string{string(e): *note})
		if err != nil {
			return err
		}
		notePatch = b
	}

	guard := ""
	if pred, ok := logistics.Predecessor(e); ok {
		guard = " AND " + eventColumn(pred) + " IS NOT NULL"
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE logistics_trails
		SET `+col+`=$1, notes = notes || $2::jsonb, updated_at=$3
		WHERE request_id=$4 AND `+col+` IS NULL`+guard,
		ts, notePatch, time.Now().UTC(), requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return request.ErrConflict
	}
	return nil
}
