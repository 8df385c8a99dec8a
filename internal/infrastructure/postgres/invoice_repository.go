package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// InvoiceRepository implements invoice.Repository.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func (r *InvoiceRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*invoice.Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, request_id, labor_hours, total_cost, parts, issued_by, created_at
		FROM invoices WHERE request_id=$1
	`, requestID)
	var inv invoice.Invoice
	var parts []byte
	err := row.Scan(&inv.ID, &inv.RequestID, &inv.LaborHours, &inv.TotalCost, &parts, &inv.IssuedBy, &inv.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &inv.Parts); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}

// CreateAndComplete inserts the invoice and completes the request in one
// transaction. The request UPDATE re-asserts both preconditions: the request
// is still non-terminal and no unresolved deliberation exists, so a propose
// racing the completion cannot close a request with an open negotiation.
func (r *InvoiceRepository) CreateAndComplete(ctx context.Context, inv *invoice.Invoice) error {
	parts, err := json.Marshal(inv.Parts)
	if err != nil {
		return err
	}
	if inv.Parts == nil {
		parts = []byte("[]")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE maintenance_requests
		SET status=$1, updated_at=$2
		WHERE request_id=$3 AND status NOT IN ($4, $5)
		AND NOT EXISTS (
			SELECT 1 FROM cost_deliberations
			WHERE request_id=$3 AND status <> $6
		)
	`, request.StatusCompleted, time.Now().UTC(), inv.RequestID, request.StatusCompleted, request.StatusCancelled, negotiation.StatusAgreed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var unresolved bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM cost_deliberations
				WHERE request_id=$1 AND status <> $2
			)
		`, inv.RequestID, negotiation.StatusAgreed).Scan(&unresolved)
		if err != nil {
			return err
		}
		if unresolved {
			return invoice.ErrNegotiationNotResolved
		}
		return request.ErrConflict
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (request_id, labor_hours, total_cost, parts, issued_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, inv.RequestID, inv.LaborHours, inv.TotalCost, parts, inv.IssuedBy, inv.CreatedAt)
	if err := row.Scan(&inv.ID); err != nil {
		if isUniqueViolation(err, "invoices_request_id_key") {
			return invoice.ErrAlreadyIssued
		}
		return err
	}

	return tx.Commit(ctx)
}
