package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

// VehicleRepository is an in-memory vehicle.Repository.
type VehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[uuid.UUID]*vehicle.Vehicle
	nextID   int64
}

func NewVehicleRepository() *VehicleRepository {
	return &VehicleRepository{vehicles: make(map[uuid.UUID]*vehicle.Vehicle)}
}

func (r *VehicleRepository) Create(ctx context.Context, v *vehicle.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	v.ID = r.nextID
	cp := *v
	r.vehicles[v.VehicleID] = &cp
	return nil
}

func (r *VehicleRepository) Update(ctx context.Context, v *vehicle.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[v.VehicleID]; !ok {
		return vehicle.ErrNotFound
	}
	cp := *v
	r.vehicles[v.VehicleID] = &cp
	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[vehicleID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *VehicleRepository) List(ctx context.Context, filter vehicle.Filter, limit, offset int) ([]*vehicle.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*vehicle.Vehicle
	for _, v := range r.vehicles {
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		if filter.Plate != nil && v.Plate != *filter.Plate {
			continue
		}
		cp := *v
		all = append(all, &cp)
	}
	sortByCreatedAtDesc(all, func(v *vehicle.Vehicle) time.Time { return v.CreatedAt })
	return paginate(all, limit, offset), nil
}
