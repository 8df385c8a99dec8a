package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appInvoice "github.com/fleetdesk/fleetdesk/internal/application/invoice"
	appLogistics "github.com/fleetdesk/fleetdesk/internal/application/logistics"
	appNegotiation "github.com/fleetdesk/fleetdesk/internal/application/negotiation"
	appRequest "github.com/fleetdesk/fleetdesk/internal/application/request"
	domainLogistics "github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	domainNegotiation "github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/notify"
	domainRequest "github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

// Service is the façade every request lifecycle is addressed through. It
// dispatches actor actions to the negotiation, logistics, and invoice
// machines, assembles composite snapshots, and emits a fire-and-forget state
// change after each committed transition. It holds no workflow state of its
// own.
type Service struct {
	requestSvc  *appRequest.Service
	negSvc      *appNegotiation.Service
	logSvc      *appLogistics.Service
	invSvc      *appInvoice.Service
	vehicleRepo vehicle.Repository
	userRepo    user.Repository
	cache       SnapshotCache
	broadcaster notify.Broadcaster
	logger      zerolog.Logger
}

// NewService creates a coordinator. cache and broadcaster may be nil.
func NewService(
	requestSvc *appRequest.Service,
	negSvc *appNegotiation.Service,
	logSvc *appLogistics.Service,
	invSvc *appInvoice.Service,
	vehicleRepo vehicle.Repository,
	userRepo user.Repository,
	cache SnapshotCache,
	broadcaster notify.Broadcaster,
	logger zerolog.Logger,
) *Service {
	return &Service{
		requestSvc:  requestSvc,
		negSvc:      negSvc,
		logSvc:      logSvc,
		invSvc:      invSvc,
		vehicleRepo: vehicleRepo,
		userRepo:    userRepo,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger.With().Str("service", "coordinator").Logger(),
	}
}

// CreateRequest files a new maintenance request.
func (s *Service) CreateRequest(ctx context.Context, actor user.Actor, in appRequest.CreateInput) (*domainRequest.Request, error) {
	req, err := s.requestSvc.Create(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, req.RequestID, actor, "request", string(req.Status))
	return req, nil
}

// AssignMechanic assigns a mechanic and opens the cost deliberation.
func (s *Service) AssignMechanic(ctx context.Context, actor user.Actor, requestID, mechanicID uuid.UUID) (*domainRequest.Request, error) {
	req, err := s.requestSvc.AssignMechanic(ctx, actor, requestID, mechanicID)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, requestID, actor, "request", string(req.Status))
	return req, nil
}

// CancelRequest aborts a non-terminal request.
func (s *Service) CancelRequest(ctx context.Context, actor user.Actor, requestID uuid.UUID) (*domainRequest.Request, error) {
	req, err := s.requestSvc.Cancel(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, requestID, actor, "request", string(req.Status))
	return req, nil
}

// Propose records the mechanic's opening offer.
func (s *Service) Propose(ctx context.Context, actor user.Actor, in appNegotiation.MoveInput) (*Snapshot, error) {
	d, err := s.negSvc.Propose(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, in.RequestID, actor, "negotiation", string(d.Status))
	return s.GetSnapshot(ctx, in.RequestID)
}

// Counter records a counter-offer.
func (s *Service) Counter(ctx context.Context, actor user.Actor, in appNegotiation.MoveInput) (*Snapshot, error) {
	d, err := s.negSvc.Counter(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, in.RequestID, actor, "negotiation", string(d.Status))
	return s.GetSnapshot(ctx, in.RequestID)
}

// Accept freezes the cost on the table.
func (s *Service) Accept(ctx context.Context, actor user.Actor, requestID uuid.UUID, comments *string) (*Snapshot, error) {
	d, err := s.negSvc.Accept(ctx, actor, requestID, comments)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, requestID, actor, "negotiation", string(d.Status))
	return s.GetSnapshot(ctx, requestID)
}

// History returns the request's negotiation ledger.
func (s *Service) History(ctx context.Context, requestID uuid.UUID) ([]*domainNegotiation.HistoryEntry, error) {
	return s.negSvc.History(ctx, requestID)
}

// UpdatePlan creates or revises the logistics plan.
func (s *Service) UpdatePlan(ctx context.Context, actor user.Actor, requestID uuid.UUID, in appLogistics.PlanInput) (*Snapshot, error) {
	if _, err := s.logSvc.UpdatePlan(ctx, actor, requestID, in); err != nil {
		return nil, err
	}
	s.committed(ctx, requestID, actor, "logistics", string(domainLogistics.StagePlanned))
	return s.GetSnapshot(ctx, requestID)
}

// RecordEvent stamps one handling milestone.
func (s *Service) RecordEvent(ctx context.Context, actor user.Actor, requestID uuid.UUID, e domainLogistics.Event, ts *time.Time, note *string) (*Snapshot, error) {
	trail, err := s.logSvc.RecordEvent(ctx, actor, requestID, e, ts, note)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, requestID, actor, "logistics", string(trail.Stage(true)))
	return s.GetSnapshot(ctx, requestID)
}

// Complete closes out the request with its invoice.
func (s *Service) Complete(ctx context.Context, actor user.Actor, in appInvoice.CompleteInput) (*appInvoice.CompleteResult, error) {
	result, err := s.invSvc.Complete(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, in.RequestID, actor, "invoice", string(domainRequest.StatusCompleted))
	return result, nil
}

// ListRequests returns requests matching the filter.
func (s *Service) ListRequests(ctx context.Context, filter domainRequest.Filter, limit, offset int) ([]*domainRequest.Request, error) {
	return s.requestSvc.List(ctx, filter, limit, offset)
}

// GetSnapshot assembles the composite read model for one request, consulting
// the cache first.
func (s *Service) GetSnapshot(ctx context.Context, requestID uuid.UUID) (*Snapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.Get(ctx, requestID); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot cache read failed")
		} else if snap != nil {
			return snap, nil
		}
	}

	req, err := s.requestSvc.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domainRequest.ErrNotFound
	}

	snap := &Snapshot{Request: req}

	if v, err := s.vehicleRepo.GetByID(ctx, req.VehicleID); err != nil {
		return nil, err
	} else if v != nil {
		snap.Vehicle = &VehicleInfo{
			VehicleID:   v.VehicleID,
			DisplayName: v.DisplayName(),
			Make:        v.Make,
			Model:       v.Model,
			Year:        v.Year,
			Plate:       v.Plate,
		}
	}
	if snap.Requester, err = s.person(ctx, req.RequesterID); err != nil {
		return nil, err
	}
	if req.MechanicID != nil {
		if snap.Mechanic, err = s.person(ctx, *req.MechanicID); err != nil {
			return nil, err
		}
	}

	if snap.Deliberation, err = s.negSvc.Get(ctx, requestID); err != nil {
		return nil, err
	}
	if snap.History, err = s.negSvc.History(ctx, requestID); err != nil {
		return nil, err
	}
	if snap.Plan, err = s.logSvc.GetPlan(ctx, requestID); err != nil {
		return nil, err
	}
	if snap.Trail, err = s.logSvc.GetTrail(ctx, requestID); err != nil {
		return nil, err
	}
	snap.Stage = snap.Trail.Stage(snap.Plan != nil)
	if snap.Invoice, err = s.invSvc.Get(ctx, requestID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, requestID, snap); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot cache write failed")
		}
	}
	return snap, nil
}

func (s *Service) person(ctx context.Context, userID uuid.UUID) (*PersonInfo, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return &PersonInfo{
		UserID:      u.UserID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}, nil
}

// committed runs the post-commit hooks: cache invalidation and the
// best-effort state change broadcast.
func (s *Service) committed(ctx context.Context, requestID uuid.UUID, actor user.Actor, scope, status string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, requestID); err != nil {
			s.logger.Warn().Err(err).Str("request_id", requestID.String()).Msg("snapshot cache invalidation failed")
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAll(notify.NewStateChangeMessage(notify.StateChange{
			RequestID:  requestID,
			Scope:      scope,
			Status:     status,
			ActorID:    actor.UserID,
			OccurredAt: time.Now().UTC(),
		}))
	}
}
