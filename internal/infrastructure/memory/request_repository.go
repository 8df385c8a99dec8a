// Package memory holds mutex-guarded in-memory repositories. They mirror the
// postgres guard semantics, including request.ErrConflict on a stale write,
// and back the application and API tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// RequestRepository is an in-memory request.Repository.
type RequestRepository struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*request.Request
	nextID   int64
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{requests: make(map[uuid.UUID]*request.Request)}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	cp := *req
	r.requests[req.RequestID] = &cp
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[requestID]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*request.Request
	for _, req := range r.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.VehicleID != nil && req.VehicleID != *filter.VehicleID {
			continue
		}
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.MechanicID != nil && (req.MechanicID == nil || *req.MechanicID != *filter.MechanicID) {
			continue
		}
		cp := *req
		all = append(all, &cp)
	}
	sortByCreatedAtDesc(all, func(req *request.Request) time.Time { return req.CreatedAt })
	return paginate(all, limit, offset), nil
}

func (r *RequestRepository) AssignMechanic(ctx context.Context, requestID, mechanicID uuid.UUID, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok || req.Status != request.StatusScheduled || req.MechanicID != nil {
		return request.ErrConflict
	}
	req.MechanicID = &mechanicID
	req.Status = request.StatusInProgress
	req.UpdatedAt = updatedAt
	return nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID uuid.UUID, from, to request.Status, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok || req.Status != from {
		return request.ErrConflict
	}
	req.Status = to
	req.UpdatedAt = updatedAt
	return nil
}
