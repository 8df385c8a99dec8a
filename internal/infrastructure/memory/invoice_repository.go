package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

// InvoiceRepository is an in-memory invoice.Repository. It completes the
// request through the paired RequestRepository so both writes stay atomic
// under one lock ordering, like the postgres transaction, and re-checks the
// paired NegotiationRepository so an unresolved deliberation blocks the
// commit itself.
type InvoiceRepository struct {
	mu           sync.Mutex
	invoices     map[uuid.UUID]*invoice.Invoice
	requests     *RequestRepository
	negotiations *NegotiationRepository
	nextID       int64
}

func NewInvoiceRepository(requests *RequestRepository, negotiations *NegotiationRepository) *InvoiceRepository {
	return &InvoiceRepository{
		invoices:     make(map[uuid.UUID]*invoice.Invoice),
		requests:     requests,
		negotiations: negotiations,
	}
}

func (r *InvoiceRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*invoice.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[requestID]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *InvoiceRepository) CreateAndComplete(ctx context.Context, inv *invoice.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.RequestID]; ok {
		return invoice.ErrAlreadyIssued
	}
	req, err := r.requests.GetByID(ctx, inv.RequestID)
	if err != nil {
		return err
	}
	if req == nil || req.IsTerminal() {
		return request.ErrConflict
	}
	if r.negotiations != nil {
		d, err := r.negotiations.GetByRequestID(ctx, inv.RequestID)
		if err != nil {
			return err
		}
		if d != nil && d.Status != negotiation.StatusAgreed {
			return invoice.ErrNegotiationNotResolved
		}
	}
	if err := r.requests.UpdateStatus(ctx, inv.RequestID, req.Status, request.StatusCompleted, time.Now().UTC()); err != nil {
		return err
	}
	r.nextID++
	inv.ID = r.nextID
	cp := *inv
	r.invoices[inv.RequestID] = &cp
	return nil
}
