package fuel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Log represents one fuel fill for a vehicle.
type Log struct {
	ID         int64     `json:"id"`
	LogID      uuid.UUID `json:"logId"`
	VehicleID  uuid.UUID `json:"vehicleId"`
	Liters     float64   `json:"liters"`
	Cost       float64   `json:"cost"`
	OdometerKm float64   `json:"odometerKm"`
	FilledAt   time.Time `json:"filledAt"`
	CreatedBy  uuid.UUID `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (l *Log) Validate() error {
	if l.Liters <= 0 {
		return errors.New("liters must be positive")
	}
	if l.Cost < 0 {
		return errors.New("cost must not be negative")
	}
	if l.OdometerKm < 0 {
		return errors.New("odometer must not be negative")
	}
	if l.FilledAt.IsZero() {
		return errors.New("filled_at is required")
	}
	return nil
}

// Repository defines persistence for fuel logs.
type Repository interface {
	Create(ctx context.Context, l *Log) error
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*Log, error)
}
