package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/fuel"
)

// FuelRepository is an in-memory fuel.Repository.
type FuelRepository struct {
	mu     sync.RWMutex
	logs   []*fuel.Log
	nextID int64
}

func NewFuelRepository() *FuelRepository {
	return &FuelRepository{}
}

func (r *FuelRepository) Create(ctx context.Context, l *fuel.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	l.ID = r.nextID
	cp := *l
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *FuelRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*fuel.Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*fuel.Log
	for _, l := range r.logs {
		if l.VehicleID == vehicleID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FilledAt.After(out[j].FilledAt) })
	return paginate(out, limit, offset), nil
}
