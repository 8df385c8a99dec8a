package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// NegotiationRepository is an in-memory negotiation.Repository.
type NegotiationRepository struct {
	mu            sync.Mutex
	deliberations map[uuid.UUID]*negotiation.Deliberation
	history       map[uuid.UUID][]*negotiation.HistoryEntry
	nextID        int64
}

func NewNegotiationRepository() *NegotiationRepository {
	return &NegotiationRepository{
		deliberations: make(map[uuid.UUID]*negotiation.Deliberation),
		history:       make(map[uuid.UUID][]*negotiation.HistoryEntry),
	}
}

func (r *NegotiationRepository) Create(ctx context.Context, d *negotiation.Deliberation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deliberations[d.RequestID]; ok {
		return nil
	}
	r.nextID++
	d.ID = r.nextID
	cp := *d
	r.deliberations[d.RequestID] = &cp
	return nil
}

func (r *NegotiationRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*negotiation.Deliberation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliberations[requestID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *NegotiationRepository) CommitMove(ctx context.Context, d *negotiation.Deliberation, prev negotiation.Guard, entry *negotiation.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.deliberations[d.RequestID]
	if !ok {
		return negotiation.ErrNotFound
	}
	if stored.Status != prev.Status || stored.Round != prev.Round || !sameActor(stored.LastActorID, prev.LastActorID) {
		return request.ErrConflict
	}
	cp := *d
	cp.ID = stored.ID
	r.deliberations[d.RequestID] = &cp

	r.nextID++
	entry.ID = r.nextID
	entry.Sequence = len(r.history[d.RequestID]) + 1
	ecp := *entry
	r.history[d.RequestID] = append(r.history[d.RequestID], &ecp)
	return nil
}

func (r *NegotiationRepository) History(ctx context.Context, requestID uuid.UUID) ([]*negotiation.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.history[requestID]
	out := make([]*negotiation.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func sameActor(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
