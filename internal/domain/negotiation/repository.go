package negotiation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for deliberations and their history ledger.
type Repository interface {
	Create(ctx context.Context, d *Deliberation) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Deliberation, error)

	// CommitMove atomically writes the mutated deliberation and appends the
	// ledger entry, assigning entry.Sequence as the next integer for the
	// request. The write only applies while the stored row still matches
	// prev; otherwise request.ErrConflict is returned and nothing is
	// persisted.
	CommitMove(ctx context.Context, d *Deliberation, prev Guard, entry *HistoryEntry) error

	// History returns the request's ledger ordered by sequence ascending.
	History(ctx context.Context, requestID uuid.UUID) ([]*HistoryEntry, error)
}
