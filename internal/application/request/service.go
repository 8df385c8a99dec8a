package request

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	domain "github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

// Service handles maintenance request lifecycle outside the negotiation and
// logistics machines: creation, mechanic assignment, cancellation, listing.
type Service struct {
	requestRepo domain.Repository
	negRepo     negotiation.Repository
	vehicleRepo vehicle.Repository
	userRepo    user.Repository
	logger      zerolog.Logger
}

// NewService creates a request service.
func NewService(requestRepo domain.Repository, negRepo negotiation.Repository, vehicleRepo vehicle.Repository, userRepo user.Repository, logger zerolog.Logger) *Service {
	return &Service{
		requestRepo: requestRepo,
		negRepo:     negRepo,
		vehicleRepo: vehicleRepo,
		userRepo:    userRepo,
		logger:      logger.With().Str("service", "request").Logger(),
	}
}

// CreateInput defines request creation input.
type CreateInput struct {
	VehicleID  uuid.UUID
	RepairType domain.RepairType
	Reason     string
	Comments   *string
}

// Create files a new maintenance request for the acting user.
func (s *Service) Create(ctx context.Context, actor user.Actor, in CreateInput) (*domain.Request, error) {
	if err := domain.ValidateRepairType(in.RepairType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, errors.New("reason is required")
	}
	v, err := s.vehicleRepo.GetByID(ctx, in.VehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, vehicle.ErrNotFound
	}
	if v.Status != vehicle.StatusActive {
		return nil, errors.New("vehicle is not active")
	}

	now := time.Now().UTC()
	req := &domain.Request{
		RequestID:   uuid.New(),
		VehicleID:   in.VehicleID,
		RequesterID: actor.UserID,
		Status:      domain.StatusScheduled,
		RepairType:  in.RepairType,
		Reason:      strings.TrimSpace(in.Reason),
		Comments:    in.Comments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("request_id", req.RequestID.String()).
		Str("vehicle_id", in.VehicleID.String()).
		Msg("maintenance request created")
	return req, nil
}

// AssignMechanic places a mechanic on a scheduled request and seeds the cost
// deliberation awaiting the mechanic's first offer. Administrative action.
func (s *Service) AssignMechanic(ctx context.Context, actor user.Actor, requestID, mechanicID uuid.UUID) (*domain.Request, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.Status != domain.StatusScheduled || req.MechanicID != nil {
		return nil, domain.ErrInvalidTransition
	}
	mech, err := s.userRepo.GetByID(ctx, mechanicID)
	if err != nil {
		return nil, err
	}
	if mech == nil || !mech.IsActive() || mech.Role != user.RoleMechanic {
		return nil, errors.New("assignee must be an active mechanic")
	}

	now := time.Now().UTC()
	if err := s.requestRepo.AssignMechanic(ctx, requestID, mechanicID, now); err != nil {
		return nil, err
	}
	// Deliberation is created lazily on mechanic selection. Create is
	// idempotent; the negotiation service also self-heals on first move.
	if err := s.negRepo.Create(ctx, negotiation.NewDeliberation(requestID)); err != nil {
		return nil, err
	}

	req.MechanicID = &mechanicID
	req.Status = domain.StatusInProgress
	req.UpdatedAt = now
	s.logger.Info().
		Str("request_id", requestID.String()).
		Str("mechanic_id", mechanicID.String()).
		Msg("mechanic assigned")
	return req, nil
}

// Cancel aborts a request that has not reached a terminal status. Allowed for
// admins and the requester.
func (s *Service) Cancel(ctx context.Context, actor user.Actor, requestID uuid.UUID) (*domain.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if !actor.IsAdmin() && req.RequesterID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	if !req.CanTransitionTo(domain.StatusCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	if err := s.requestRepo.UpdateStatus(ctx, requestID, req.Status, domain.StatusCancelled, now); err != nil {
		return nil, err
	}
	req.Status = domain.StatusCancelled
	req.UpdatedAt = now
	s.logger.Info().Str("request_id", requestID.String()).Msg("request cancelled")
	return req, nil
}

// Get retrieves a request by ID, nil when unknown.
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*domain.Request, error) {
	return s.requestRepo.GetByID(ctx, requestID)
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, filter domain.Filter, limit, offset int) ([]*domain.Request, error) {
	return s.requestRepo.List(ctx, filter, limit, offset)
}
