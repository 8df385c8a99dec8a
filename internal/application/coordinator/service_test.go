package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk/internal/application/coordinator"
	appInvoice "github.com/fleetdesk/fleetdesk/internal/application/invoice"
	appLogistics "github.com/fleetdesk/fleetdesk/internal/application/logistics"
	appNegotiation "github.com/fleetdesk/fleetdesk/internal/application/negotiation"
	appRequest "github.com/fleetdesk/fleetdesk/internal/application/request"
	domainInvoice "github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	domainLogistics "github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	domainNegotiation "github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/notify"
	domainRequest "github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/cache"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/memory"
)

// recordingBroadcaster captures broadcast messages for assertions.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []*notify.Message
}

func (b *recordingBroadcaster) BroadcastToAll(msg *notify.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) BroadcastToUser(userID string, msg *notify.Message) {
	b.BroadcastToAll(msg)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

type fixture struct {
	svc       *coordinator.Service
	broadcast *recordingBroadcaster
	redisMock *miniredis.Miniredis
	admin     user.Actor
	requester user.Actor
	mechanic  user.Actor
	vehicleID uuid.UUID
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	ctx := context.Background()

	reqRepo := memory.NewRequestRepository()
	negRepo := memory.NewNegotiationRepository()
	logRepo := memory.NewLogisticsRepository()
	invRepo := memory.NewInvoiceRepository(reqRepo, negRepo)
	vehRepo := memory.NewVehicleRepository()
	userRepo := memory.NewUserRepository()

	now := time.Now().UTC()
	adminID, requesterID, mechanicID := uuid.New(), uuid.New(), uuid.New()
	for _, u := range []*user.User{
		{UserID: adminID, Username: "dispatch", DisplayName: "Dispatch", Role: user.RoleAdmin, Status: user.StatusActive, CreatedAt: now, UpdatedAt: now},
		{UserID: requesterID, Username: "driver.kim", DisplayName: "Kim", Role: user.RoleUser, Status: user.StatusActive, CreatedAt: now, UpdatedAt: now},
		{UserID: mechanicID, Username: "mech.ortiz", DisplayName: "Ortiz", Role: user.RoleMechanic, Status: user.StatusActive, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, userRepo.Create(ctx, u))
	}

	veh := &vehicle.Vehicle{
		VehicleID: uuid.New(),
		Make:      "Ford",
		Model:     "Transit",
		Year:      2021,
		Plate:     "FL-2043",
		Status:    vehicle.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, vehRepo.Create(ctx, veh))

	logger := zerolog.Nop()
	requestSvc := appRequest.NewService(reqRepo, negRepo, vehRepo, userRepo, logger)
	negSvc := appNegotiation.NewService(reqRepo, negRepo, logger)
	logSvc := appLogistics.NewService(reqRepo, logRepo, logger)
	invSvc := appInvoice.NewService(reqRepo, negRepo, invRepo, appInvoice.DefaultDivergenceRule, logger)

	f := &fixture{
		broadcast: &recordingBroadcaster{},
		admin:     user.Actor{UserID: adminID, Username: "dispatch", Role: user.RoleAdmin},
		requester: user.Actor{UserID: requesterID, Username: "driver.kim", Role: user.RoleUser},
		mechanic:  user.Actor{UserID: mechanicID, Username: "mech.ortiz", Role: user.RoleMechanic},
		vehicleID: veh.VehicleID,
	}

	var snapCache coordinator.SnapshotCache
	if withCache {
		f.redisMock = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: f.redisMock.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		snapCache = cache.NewSnapshotCache(client, time.Minute)
	}

	f.svc = coordinator.NewService(requestSvc, negSvc, logSvc, invSvc, vehRepo, userRepo, snapCache, f.broadcast, logger)
	return f
}

func (f *fixture) file(t *testing.T) uuid.UUID {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), f.requester, appRequest.CreateInput{
		VehicleID:  f.vehicleID,
		RepairType: domainRequest.RepairBrakes,
		Reason:     "pedal goes soft",
	})
	require.NoError(t, err)
	return req.RequestID
}

func TestCoordinatorLifecycle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	requestID := f.file(t)

	_, err := f.svc.AssignMechanic(ctx, f.admin, requestID, f.mechanic.UserID)
	require.NoError(t, err)

	snap, err := f.svc.Propose(ctx, f.mechanic, appNegotiation.MoveInput{RequestID: requestID, Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, domainNegotiation.StatusProposed, snap.Deliberation.Status)

	snap, err = f.svc.Counter(ctx, f.requester, appNegotiation.MoveInput{RequestID: requestID, Amount: 430})
	require.NoError(t, err)
	assert.Equal(t, domainNegotiation.StatusNegotiating, snap.Deliberation.Status)

	snap, err = f.svc.Accept(ctx, f.mechanic, requestID, nil)
	require.NoError(t, err)
	assert.Equal(t, domainNegotiation.StatusAgreed, snap.Deliberation.Status)
	require.NotNil(t, snap.Deliberation.EffectiveCost())
	assert.Equal(t, 430.0, *snap.Deliberation.EffectiveCost())
	assert.Len(t, snap.History, 3)

	snap, err = f.svc.UpdatePlan(ctx, f.admin, requestID, appLogistics.PlanInput{PickupRequired: true})
	require.NoError(t, err)
	assert.Equal(t, domainLogistics.StagePlanned, snap.Stage)

	snap, err = f.svc.RecordEvent(ctx, f.mechanic, requestID, domainLogistics.EventReceived, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domainLogistics.StageReceived, snap.Stage)

	res, err := f.svc.Complete(ctx, f.mechanic, appInvoice.CompleteInput{
		RequestID:  requestID,
		LaborHours: 2,
		TotalCost:  430,
		Parts:      []domainInvoice.PartUsed{{Name: "brake pads", Quantity: 2, UnitPrice: 60}},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Warning)

	snap, err = f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, domainRequest.StatusCompleted, snap.Request.Status)
	require.NotNil(t, snap.Invoice)
	assert.Equal(t, 430.0, snap.Invoice.TotalCost)
}

func TestSnapshotCarriesDisplayMetadata(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	requestID := f.file(t)

	_, err := f.svc.AssignMechanic(ctx, f.admin, requestID, f.mechanic.UserID)
	require.NoError(t, err)

	snap, err := f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, snap.Vehicle)
	assert.Equal(t, "Ford Transit (FL-2043)", snap.Vehicle.DisplayName)
	require.NotNil(t, snap.Requester)
	assert.Equal(t, "driver.kim", snap.Requester.Username)
	require.NotNil(t, snap.Mechanic)
	assert.Equal(t, user.RoleMechanic, snap.Mechanic.Role)
	require.NotNil(t, snap.Trail)
	assert.Equal(t, domainLogistics.StageNone, snap.Stage)
}

func TestSnapshotUnknownRequest(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.GetSnapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainRequest.ErrNotFound)
}

func TestSnapshotCacheReadThrough(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	requestID := f.file(t)

	_, err := f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	assert.True(t, f.redisMock.Exists("fleetdesk:snapshot:"+requestID.String()))

	// Second read is served from the cache.
	snap, err := f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, requestID, snap.Request.RequestID)
}

func TestSnapshotCacheInvalidatedOnTransition(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	requestID := f.file(t)

	snap, err := f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	assert.Nil(t, snap.Request.MechanicID)

	_, err = f.svc.AssignMechanic(ctx, f.admin, requestID, f.mechanic.UserID)
	require.NoError(t, err)

	snap, err = f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, snap.Request.MechanicID)
	assert.Equal(t, f.mechanic.UserID, *snap.Request.MechanicID)
}

func TestCommittedTransitionsBroadcast(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	requestID := f.file(t)
	assert.Equal(t, 1, f.broadcast.count())

	_, err := f.svc.AssignMechanic(ctx, f.admin, requestID, f.mechanic.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.broadcast.count())

	_, err = f.svc.Propose(ctx, f.mechanic, appNegotiation.MoveInput{RequestID: requestID, Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, 3, f.broadcast.count())
	assert.Equal(t, "state_changed", f.broadcast.messages[2].Event)

	// Rejected moves never broadcast.
	_, err = f.svc.Propose(ctx, f.mechanic, appNegotiation.MoveInput{RequestID: requestID, Amount: 450})
	require.Error(t, err)
	assert.Equal(t, 3, f.broadcast.count())
}

func TestCancelBroadcastsAndCloses(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	requestID := f.file(t)

	req, err := f.svc.CancelRequest(ctx, f.requester, requestID)
	require.NoError(t, err)
	assert.Equal(t, domainRequest.StatusCancelled, req.Status)

	snap, err := f.svc.GetSnapshot(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, domainRequest.StatusCancelled, snap.Request.Status)
}
