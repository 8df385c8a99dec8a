package negotiation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
)

// Service drives the cost deliberation state machine for one request at a
// time. All validation happens against a loaded snapshot; the repository
// re-checks that snapshot at commit, so concurrent moves on the same open
// offer resolve to exactly one winner.
type Service struct {
	requestRepo request.Repository
	negRepo     domain.Repository
	logger      zerolog.Logger
}

// NewService creates a negotiation service.
func NewService(requestRepo request.Repository, negRepo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		requestRepo: requestRepo,
		negRepo:     negRepo,
		logger:      logger.With().Str("service", "negotiation").Logger(),
	}
}

// MoveInput carries one negotiation move.
type MoveInput struct {
	RequestID uuid.UUID
	Amount    float64
	Comments  *string
}

// Propose records the assigned mechanic's opening offer.
func (s *Service) Propose(ctx context.Context, actor user.Actor, in MoveInput) (*domain.Deliberation, error) {
	req, d, err := s.load(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsMechanic(actor.UserID) {
		return nil, request.ErrForbidden
	}
	prev := d.Snapshot()
	if err := d.Propose(actor.UserID, in.Amount); err != nil {
		return nil, err
	}
	entry := s.entry(in.RequestID, domain.KindPropose, &in.Amount, actor.UserID, in.Comments)
	if err := s.negRepo.CommitMove(ctx, d, prev, entry); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", in.RequestID.String()).
		Float64("amount", in.Amount).
		Msg("cost proposed")
	return d, nil
}

// Counter records a counter-offer from the party opposite the last mover.
func (s *Service) Counter(ctx context.Context, actor user.Actor, in MoveInput) (*domain.Deliberation, error) {
	req, d, err := s.load(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(actor.UserID) {
		return nil, request.ErrForbidden
	}
	prev := d.Snapshot()
	if err := d.Counter(actor.UserID, in.Amount); err != nil {
		return nil, err
	}
	entry := s.entry(in.RequestID, domain.KindNegotiate, &in.Amount, actor.UserID, in.Comments)
	if err := s.negRepo.CommitMove(ctx, d, prev, entry); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", in.RequestID.String()).
		Int("round", d.Round).
		Float64("amount", in.Amount).
		Msg("counter-offer recorded")
	return d, nil
}

// Accept freezes the cost on the table and closes the deliberation.
func (s *Service) Accept(ctx context.Context, actor user.Actor, requestID uuid.UUID, comments *string) (*domain.Deliberation, error) {
	req, d, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(actor.UserID) {
		return nil, request.ErrForbidden
	}
	prev := d.Snapshot()
	agreed, err := d.Accept(actor.UserID)
	if err != nil {
		return nil, err
	}
	entry := s.entry(requestID, domain.KindAccept, &agreed, actor.UserID, comments)
	if err := s.negRepo.CommitMove(ctx, d, prev, entry); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", requestID.String()).
		Float64("agreed", agreed).
		Msg("cost agreed")
	return d, nil
}

// History returns the request's negotiation ledger, oldest first.
func (s *Service) History(ctx context.Context, requestID uuid.UUID) ([]*domain.HistoryEntry, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrNotFound
	}
	return s.negRepo.History(ctx, requestID)
}

// Get returns the deliberation for a request, nil when none exists yet.
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*domain.Deliberation, error) {
	return s.negRepo.GetByRequestID(ctx, requestID)
}

// load fetches the request and its deliberation, seeding the deliberation if
// mechanic assignment raced with the first move.
func (s *Service) load(ctx context.Context, requestID uuid.UUID) (*request.Request, *domain.Deliberation, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, request.ErrNotFound
	}
	if req.IsTerminal() {
		return nil, nil, request.ErrInvalidTransition
	}
	d, err := s.negRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		if req.MechanicID == nil {
			return nil, nil, domain.ErrNotFound
		}
		seed := domain.NewDeliberation(requestID)
		if err := s.negRepo.Create(ctx, seed); err != nil {
			return nil, nil, err
		}
		if d, err = s.negRepo.GetByRequestID(ctx, requestID); err != nil {
			return nil, nil, err
		}
		if d == nil {
			return nil, nil, domain.ErrNotFound
		}
	}
	return req, d, nil
}

func (s *Service) entry(requestID uuid.UUID, kind domain.EntryKind, amount *float64, actorID uuid.UUID, comments *string) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		RequestID: requestID,
		Kind:      kind,
		Amount:    amount,
		ActorID:   actorID,
		Comments:  comments,
		CreatedAt: time.Now().UTC(),
	}
}
