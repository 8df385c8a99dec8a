package vehicle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

// Service handles the vehicle directory.
type Service struct {
	repo   domain.Repository
	logger zerolog.Logger
}

// NewService creates a vehicle service.
func NewService(repo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "vehicle").Logger(),
	}
}

// CreateInput defines vehicle creation input.
type CreateInput struct {
	Make  string
	Model string
	Year  int
	Plate string
}

// UpdateInput defines vehicle update input.
type UpdateInput struct {
	Make   *string
	Model  *string
	Year   *int
	Plate  *string
	Status *domain.Status
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Vehicle, error) {
	now := time.Now().UTC()
	v := &domain.Vehicle{
		VehicleID: uuid.New(),
		Make:      strings.TrimSpace(in.Make),
		Model:     strings.TrimSpace(in.Model),
		Year:      in.Year,
		Plate:     strings.ToUpper(strings.TrimSpace(in.Plate)),
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info().Str("vehicle_id", v.VehicleID.String()).Str("plate", v.Plate).Msg("vehicle registered")
	return v, nil
}

func (s *Service) Update(ctx context.Context, vehicleID uuid.UUID, in UpdateInput) (*domain.Vehicle, error) {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrNotFound
	}
	if in.Make != nil {
		v.Make = strings.TrimSpace(*in.Make)
	}
	if in.Model != nil {
		v.Model = strings.TrimSpace(*in.Model)
	}
	if in.Year != nil {
		v.Year = *in.Year
	}
	if in.Plate != nil {
		v.Plate = strings.ToUpper(strings.TrimSpace(*in.Plate))
	}
	if in.Status != nil {
		v.Status = *in.Status
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	v.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, vehicleID uuid.UUID) (*domain.Vehicle, error) {
	return s.repo.GetByID(ctx, vehicleID)
}

func (s *Service) List(ctx context.Context, filter domain.Filter, limit, offset int) ([]*domain.Vehicle, error) {
	return s.repo.List(ctx, filter, limit, offset)
}
