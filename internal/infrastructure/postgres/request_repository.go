package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// RequestRepository implements request.Repository.
type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO maintenance_requests
		(request_id, vehicle_id, requester_id, mechanic_id, status, repair_type, reason, comments, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, req.RequestID, req.VehicleID, req.RequesterID, req.MechanicID, req.Status, req.RepairType, req.Reason, req.Comments, req.CreatedAt, req.UpdatedAt)
	return err
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, request_id, vehicle_id, requester_id, mechanic_id, status, repair_type, reason, comments, created_at, updated_at
		FROM maintenance_requests WHERE request_id=$1
	`, requestID)
	return scanRequest(row)
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	query := `SELECT id, request_id, vehicle_id, requester_id, mechanic_id, status, repair_type, reason, comments, created_at, updated_at FROM maintenance_requests`
	args := []interface{}{}
	idx := 1
	if filter.Status != nil {
		query += " WHERE status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.VehicleID != nil {
		query += addWhere(query) + " vehicle_id=$" + itoa(idx)
		args = append(args, *filter.VehicleID)
		idx++
	}
	if filter.RequesterID != nil {
		query += addWhere(query) + " requester_id=$" + itoa(idx)
		args = append(args, *filter.RequesterID)
		idx++
	}
	if filter.MechanicID != nil {
		query += addWhere(query) + " mechanic_id=$" + itoa(idx)
		args = append(args, *filter.MechanicID)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []*request.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *RequestRepository) AssignMechanic(ctx context.Context, requestID, mechanicID uuid.UUID, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE maintenance_requests
		SET mechanic_id=$1, status=$2, updated_at=$3
		WHERE request_id=$4 AND status=$5 AND mechanic_id IS NULL
	`, mechanicID, request.StatusInProgress, updatedAt, requestID, request.StatusScheduled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return request.ErrConflict
	}
	return nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID uuid.UUID, from, to request.Status, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE maintenance_requests
		SET status=$1, updated_at=$2
		WHERE request_id=$3 AND status=$4
	`, to, updatedAt, requestID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return request.ErrConflict
	}
	return nil
}

func scanRequest(row pgx.Row) (*request.Request, error) {
	var req request.Request
	if err := row.Scan(&req.ID, &req.RequestID, &req.VehicleID, &req.RequesterID, &req.MechanicID, &req.Status, &req.RepairType, &req.Reason, &req.Comments, &req.CreatedAt, &req.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}
