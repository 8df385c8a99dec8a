package invoice

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for invoices.
type Repository interface {
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Invoice, error)

	// CreateAndComplete inserts the invoice and flips the request to
	// COMPLETED as one atomic unit. Returns ErrAlreadyIssued when an invoice
	// exists, request.ErrConflict when the request left its observed
	// non-terminal status between read and write.
	CreateAndComplete(ctx context.Context, inv *Invoice) error
}
