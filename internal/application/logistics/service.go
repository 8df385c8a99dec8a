package logistics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
)

// Service sequences the physical handling lifecycle of a request. It runs
// independently of cost negotiation: a vehicle may be picked up and worked on
// before, during, or after the price is settled.
type Service struct {
	requestRepo request.Repository
	logRepo     domain.Repository
	logger      zerolog.Logger
}

// NewService creates a logistics service.
func NewService(requestRepo request.Repository, logRepo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		requestRepo: requestRepo,
		logRepo:     logRepo,
		logger:      logger.With().Str("service", "logistics").Logger(),
	}
}

var errInvalidWindow = errors.New("plan window ends before it starts")

// PlanInput carries a logistics plan revision.
type PlanInput struct {
	PickupRequired bool
	ReturnRequired bool
	PickupAddress  *string
	ReturnAddress  *string
	WindowStart    *time.Time
	WindowEnd      *time.Time
	ContactName    *string
	ContactPhone   *string
}

// UpdatePlan creates or revises the pickup/return plan. Administrative
// action; legal until the vehicle is received.
func (s *Service) UpdatePlan(ctx context.Context, actor user.Actor, requestID uuid.UUID, in PlanInput) (*domain.Plan, error) {
	if !actor.IsAdmin() {
		return nil, request.ErrForbidden
	}
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrNotFound
	}
	if req.IsTerminal() {
		return nil, request.ErrInvalidTransition
	}
	trail, err := s.logRepo.GetTrail(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if trail != nil && trail.Frozen() {
		return nil, domain.ErrPlanFrozen
	}
	if in.WindowStart != nil && in.WindowEnd != nil && in.WindowEnd.Before(*in.WindowStart) {
		return nil, errInvalidWindow
	}

	now := time.Now().UTC()
	plan := &domain.Plan{
		RequestID:      requestID,
		PickupRequired: in.PickupRequired,
		ReturnRequired: in.ReturnRequired,
		PickupAddress:  in.PickupAddress,
		ReturnAddress:  in.ReturnAddress,
		WindowStart:    in.WindowStart,
		WindowEnd:      in.WindowEnd,
		ContactName:    in.ContactName,
		ContactPhone:   in.ContactPhone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.logRepo.UpsertPlan(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info().Str("request_id", requestID.String()).Msg("logistics plan updated")
	return plan, nil
}

// RecordEvent stamps one handling milestone. Mechanic-only, strictly ordered,
// never repeated. A nil ts means "now".
func (s *Service) RecordEvent(ctx context.Context, actor user.Actor, requestID uuid.UUID, e domain.Event, ts *time.Time, note *string) (*domain.Trail, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, request.ErrNotFound
	}
	if !req.IsMechanic(actor.UserID) {
		return nil, request.ErrForbidden
	}
	if req.IsTerminal() {
		return nil, request.ErrInvalidTransition
	}

	trail, err := s.logRepo.GetTrail(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if trail == nil {
		trail = &domain.Trail{RequestID: requestID}
	}
	when := time.Now().UTC()
	if ts != nil {
		when = ts.UTC()
	}
	if err := trail.Record(e, when, note); err != nil {
		return nil, err
	}
	if err := s.logRepo.RecordEvent(ctx, requestID, e, when, note); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", requestID.String()).
		Str("event", string(e)).
		Time("at", when).
		Msg("logistics event recorded")
	return trail, nil
}

// GetPlan returns the plan, nil when none set.
func (s *Service) GetPlan(ctx context.Context, requestID uuid.UUID) (*domain.Plan, error) {
	return s.logRepo.GetPlan(ctx, requestID)
}

// GetTrail returns the trail, never nil.
func (s *Service) GetTrail(ctx context.Context, requestID uuid.UUID) (*domain.Trail, error) {
	trail, err := s.logRepo.GetTrail(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if trail == nil {
		trail = &domain.Trail{RequestID: requestID}
	}
	return trail, nil
}
