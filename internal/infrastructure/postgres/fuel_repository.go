package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/domain/fuel"
)

// FuelRepository implements fuel.Repository.
type FuelRepository struct {
	pool *pgxpool.Pool
}

func NewFuelRepository(pool *pgxpool.Pool) *FuelRepository {
	return &FuelRepository{pool: pool}
}

func (r *FuelRepository) Create(ctx context.Context, l *fuel.Log) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fuel_logs (log_id, vehicle_id, liters, cost, odometer_km, filled_at, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, l.LogID, l.VehicleID, l.Liters, l.Cost, l.OdometerKm, l.FilledAt, l.CreatedBy, l.CreatedAt)
	return err
}

func (r *FuelRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*fuel.Log, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, log_id, vehicle_id, liters, cost, odometer_km, filled_at, created_by, created_at
		FROM fuel_logs WHERE vehicle_id=$1
		ORDER BY filled_at DESC LIMIT $2 OFFSET $3
	`, vehicleID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []*fuel.Log
	for rows.Next() {
		var l fuel.Log
		if err := rows.Scan(&l.ID, &l.LogID, &l.VehicleID, &l.Liters, &l.Cost, &l.OdometerKm, &l.FilledAt, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
