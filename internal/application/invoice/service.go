package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
)

// Service finalizes a request: validates the deliberation is resolved,
// records the invoice, and flips the request to COMPLETED as one atomic unit.
type Service struct {
	requestRepo    request.Repository
	negRepo        negotiation.Repository
	invRepo        domain.Repository
	divergenceRule string
	logger         zerolog.Logger
}

// NewService creates an invoice service. divergenceRule may be empty to
// disable the divergence warning.
func NewService(requestRepo request.Repository, negRepo negotiation.Repository, invRepo domain.Repository, divergenceRule string, logger zerolog.Logger) *Service {
	return &Service{
		requestRepo:    requestRepo,
		negRepo:        negRepo,
		invRepo:        invRepo,
		divergenceRule: divergenceRule,
		logger:         logger.With().Str("service", "invoice").Logger(),
	}
}

// CompleteInput carries the closing invoice.
type CompleteInput struct {
	RequestID  uuid.UUID
	LaborHours float64
	TotalCost  float64
	Parts      []domain.PartUsed
}

// CompleteResult is the outcome of a successful completion. Warning is set
// when the invoice total diverges from the agreed cost; it never blocks.
type CompleteResult struct {
	Invoice *domain.Invoice `json:"invoice"`
	Warning *string         `json:"warning,omitempty"`
}

// Complete closes out the request with its invoice. Sole transition into
// COMPLETED.
func (s *Service) Complete(ctx context.Context, actor user.Actor, in CompleteInput) (*CompleteResult, error) {
	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrNotFound
	}
	if req.IsTerminal() {
		return nil, request.ErrInvalidTransition
	}
	if !req.IsMechanic(actor.UserID) {
		return nil, request.ErrForbidden
	}

	d, err := s.negRepo.GetByRequestID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if d != nil && d.Status != negotiation.StatusAgreed {
		return nil, domain.ErrNegotiationNotResolved
	}

	inv := &domain.Invoice{
		RequestID:  in.RequestID,
		LaborHours: in.LaborHours,
		TotalCost:  in.TotalCost,
		Parts:      in.Parts,
		IssuedBy:   actor.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	warning := s.divergenceWarning(d, in.TotalCost)

	if err := s.invRepo.CreateAndComplete(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", in.RequestID.String()).
		Float64("total", in.TotalCost).
		Float64("parts_total", inv.PartsTotal()).
		Msg("request completed with invoice")
	return &CompleteResult{Invoice: inv, Warning: warning}, nil
}

// Get returns the invoice for a request, nil when none issued.
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*domain.Invoice, error) {
	return s.invRepo.GetByRequestID(ctx, requestID)
}

// divergenceWarning compares the invoice total against the agreed cost. The
// source workflow never hard-enforces equality: the as-worked total may
// legitimately differ from the pre-work agreement, so divergence is surfaced,
// not blocked.
func (s *Service) divergenceWarning(d *negotiation.Deliberation, total float64) *string {
	if d == nil {
		return nil
	}
	agreed := d.EffectiveCost()
	if agreed == nil {
		return nil
	}
	flagged, err := Diverges(s.divergenceRule, total, *agreed)
	if err != nil {
		s.logger.Warn().Err(err).Str("rule", s.divergenceRule).Msg("divergence rule evaluation failed")
		return nil
	}
	if !flagged {
		return nil
	}
	msg := fmt.Sprintf("invoice total %.2f diverges from agreed cost %.2f", total, *agreed)
	return &msg
}
