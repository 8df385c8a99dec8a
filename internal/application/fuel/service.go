package fuel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/fleetdesk/fleetdesk/internal/domain/fuel"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

// Service handles fuel logs.
type Service struct {
	repo        domain.Repository
	vehicleRepo vehicle.Repository
	logger      zerolog.Logger
}

// NewService creates a fuel service.
func NewService(repo domain.Repository, vehicleRepo vehicle.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		vehicleRepo: vehicleRepo,
		logger:      logger.With().Str("service", "fuel").Logger(),
	}
}

// CreateInput defines fuel log input.
type CreateInput struct {
	VehicleID  uuid.UUID
	Liters     float64
	Cost       float64
	OdometerKm float64
	FilledAt   time.Time
}

func (s *Service) Create(ctx context.Context, actor user.Actor, in CreateInput) (*domain.Log, error) {
	v, err := s.vehicleRepo.GetByID(ctx, in.VehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, vehicle.ErrNotFound
	}
	l := &domain.Log{
		LogID:      uuid.New(),
		VehicleID:  in.VehicleID,
		Liters:     in.Liters,
		Cost:       in.Cost,
		OdometerKm: in.OdometerKm,
		FilledAt:   in.FilledAt.UTC(),
		CreatedBy:  actor.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*domain.Log, error) {
	return s.repo.ListByVehicle(ctx, vehicleID, limit, offset)
}
