package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// NegotiationRepository implements negotiation.Repository.
type NegotiationRepository struct {
	pool *pgxpool.Pool
}

func NewNegotiationRepository(pool *pgxpool.Pool) *NegotiationRepository {
	return &NegotiationRepository{pool: pool}
}

// Create seeds a deliberation; a no-op when one already exists.
func (r *NegotiationRepository) Create(ctx context.Context, d *negotiation.Deliberation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cost_deliberations
		(request_id, status, proposed_cost, negotiated_cost, round, last_actor_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (request_id) DO NOTHING
	`, d.RequestID, d.Status, d.ProposedCost, d.NegotiatedCost, d.Round, d.LastActorID, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *NegotiationRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*negotiation.Deliberation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, request_id, status, proposed_cost, negotiated_cost, round, last_actor_id, created_at, updated_at
		FROM cost_deliberations WHERE request_id=$1
	`, requestID)
	return scanDeliberation(row)
}

// CommitMove writes the deliberation and appends the ledger entry in one
// transaction. The UPDATE is guarded by the caller's observed snapshot; the
// ledger assigns the sequence number itself, with the unique constraint on
// (request_id, sequence) as the backstop against concurrent appends.
func (r *NegotiationRepository) CommitMove(ctx context.Context, d *negotiation.Deliberation, prev negotiation.Guard, entry *negotiation.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE cost_deliberations
		SET status=$1, proposed_cost=$2, negotiated_cost=$3, round=$4, last_actor_id=$5, updated_at=$6
		WHERE request_id=$7 AND status=$8 AND round=$9 AND last_actor_id IS NOT DISTINCT FROM $10
	`, d.Status, d.ProposedCost, d.NegotiatedCost, d.Round, d.LastActorID, d.UpdatedAt,
		d.RequestID, prev.Status, prev.Round, prev.LastActorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return request.ErrConflict
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO negotiation_history
		(request_id, sequence, kind, amount, actor_id, comments, created_at)
		VALUES ($1, (SELECT COALESCE(MAX(sequence), 0) + 1 FROM negotiation_history WHERE request_id=$1), $2, $3, $4, $5, $6)
		RETURNING id, sequence
	`, entry.RequestID, entry.Kind, entry.Amount, entry.ActorID, entry.Comments, entry.CreatedAt)
	if err := row.Scan(&entry.ID, &entry.Sequence); err != nil {
		if isUniqueViolation(err, "negotiation_history_request_seq") {
			return request.ErrConflict
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err, "negotiation_history_request_seq") {
			return request.ErrConflict
		}
		return err
	}
	return nil
}

func (r *NegotiationRepository) History(ctx context.Context, requestID uuid.UUID) ([]*negotiation.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, sequence, kind, amount, actor_id, comments, created_at
		FROM negotiation_history WHERE request_id=$1 ORDER BY sequence ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*negotiation.HistoryEntry
	for rows.Next() {
		var e negotiation.HistoryEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Sequence, &e.Kind, &e.Amount, &e.ActorID, &e.Comments, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func scanDeliberation(row pgx.Row) (*negotiation.Deliberation, error) {
	var d negotiation.Deliberation
	if err := row.Scan(&d.ID, &d.RequestID, &d.Status, &d.ProposedCost, &d.NegotiatedCost, &d.Round, &d.LastActorID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
