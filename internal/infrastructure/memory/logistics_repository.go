package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// LogisticsRepository is an in-memory logistics.Repository.
type LogisticsRepository struct {
	mu     sync.Mutex
	plans  map[uuid.UUID]*logistics.Plan
	trails map[uuid.UUID]*logistics.Trail
	nextID int64
}

func NewLogisticsRepository() *LogisticsRepository {
	return &LogisticsRepository{
		plans:  make(map[uuid.UUID]*logistics.Plan),
		trails: make(map[uuid.UUID]*logistics.Trail),
	}
}

func (r *LogisticsRepository) UpsertPlan(ctx context.Context, plan *logistics.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trails[plan.RequestID]; ok && t.Frozen() {
		return request.ErrConflict
	}
	if existing, ok := r.plans[plan.RequestID]; ok {
		plan.ID = existing.ID
		plan.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		plan.ID = r.nextID
	}
	cp := copyPlan(plan)
	r.plans[plan.RequestID] = cp
	return nil
}

func (r *LogisticsRepository) GetPlan(ctx context.Context, requestID uuid.UUID) (*logistics.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[requestID]
	if !ok {
		return nil, nil
	}
	return copyPlan(p), nil
}

func (r *LogisticsRepository) GetTrail(ctx context.Context, requestID uuid.UUID) (*logistics.Trail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trails[requestID]
	if !ok {
		return nil, nil
	}
	return copyTrail(t), nil
}

func (r *LogisticsRepository) RecordEvent(ctx context.Context, requestID uuid.UUID, e logistics.Event, ts time.Time, note *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trails[requestID]
	if !ok {
		r.nextID++
		t = &logistics.Trail{ID: r.nextID, RequestID: requestID, UpdatedAt: ts}
		r.trails[requestID] = t
	}
	if t.Recorded(e) != nil {
		return request.ErrConflict
	}
	if pred, hasPred := logistics.Predecessor(e); hasPred && t.Recorded(pred) == nil {
		return request.ErrConflict
	}
	return t.Record(e, ts, note)
}

func copyPlan(p *logistics.Plan) *logistics.Plan {
	cp := *p
	return &cp
}

func copyTrail(t *logistics.Trail) *logistics.Trail {
	cp := *t
	if t.Notes != nil {
		cp.Notes = make(map[string]string, len(t.Notes))
		for k, v := range t.Notes {
			cp.Notes[k] = v
		}
	}
	return &cp
}
