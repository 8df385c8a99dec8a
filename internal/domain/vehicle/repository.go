package vehicle

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls vehicle listing.
type Filter struct {
	Status *Status
	Plate  *string
}

// Repository defines persistence for vehicles.
type Repository interface {
	Create(ctx context.Context, v *Vehicle) error
	Update(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, vehicleID uuid.UUID) (*Vehicle, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Vehicle, error)
}
