package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

// VehicleRepository implements vehicle.Repository.
type VehicleRepository struct {
	pool *pgxpool.Pool
}

func NewVehicleRepository(pool *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{pool: pool}
}

func (r *VehicleRepository) Create(ctx context.Context, v *vehicle.Vehicle) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vehicles (vehicle_id, make, model, year, plate, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, v.VehicleID, v.Make, v.Model, v.Year, v.Plate, v.Status, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *VehicleRepository) Update(ctx context.Context, v *vehicle.Vehicle) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE vehicles
		SET make=$1, model=$2, year=$3, plate=$4, status=$5, updated_at=$6
		WHERE vehicle_id=$7
	`, v.Make, v.Model, v.Year, v.Plate, v.Status, v.UpdatedAt, v.VehicleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vehicle.ErrNotFound
	}
	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Vehicle, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, vehicle_id, make, model, year, plate, status, created_at, updated_at
		FROM vehicles WHERE vehicle_id=$1
	`, vehicleID)
	return scanVehicle(row)
}

func (r *VehicleRepository) List(ctx context.Context, filter vehicle.Filter, limit, offset int) ([]*vehicle.Vehicle, error) {
	query := `SELECT id, vehicle_id, make, model, year, plate, status, created_at, updated_at FROM vehicles`
	args := []interface{}{}
	idx := 1
	if filter.Status != nil {
		query += " WHERE status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Plate != nil {
		query += addWhere(query) + " plate=$" + itoa(idx)
		args = append(args, *filter.Plate)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []*vehicle.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func scanVehicle(row pgx.Row) (*vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	if err := row.Scan(&v.ID, &v.VehicleID, &v.Make, &v.Model, &v.Year, &v.Plate, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
