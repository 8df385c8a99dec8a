package logistics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for logistics plans and event trails.
type Repository interface {
	// UpsertPlan creates or revises the plan. The write is refused with
	// request.ErrConflict if the trail's RECEIVED milestone landed between
	// the caller's read and the commit.
	UpsertPlan(ctx context.Context, plan *Plan) error
	GetPlan(ctx context.Context, requestID uuid.UUID) (*Plan, error)

	// GetTrail returns the trail, or nil when no milestone has fired and no
	// trail row exists yet.
	GetTrail(ctx context.Context, requestID uuid.UUID) (*Trail, error)

	// RecordEvent stamps e at ts with an optional note. The column must
	// still be empty and the predecessor column populated at commit time; a
	// guard miss after the caller validated means a concurrent writer won,
	// reported as request.ErrConflict.
	RecordEvent(ctx context.Context, requestID uuid.UUID, e Event, ts time.Time, note *string) error
}
