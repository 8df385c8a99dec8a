package negotiation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/memory"
)

type fixture struct {
	svc       *Service
	reqRepo   *memory.RequestRepository
	negRepo   *memory.NegotiationRepository
	requestID uuid.UUID
	requester user.Actor
	mechanic  user.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reqRepo := memory.NewRequestRepository()
	negRepo := memory.NewNegotiationRepository()

	requesterID := uuid.New()
	mechanicID := uuid.New()
	req := &request.Request{
		RequestID:   uuid.New(),
		VehicleID:   uuid.New(),
		RequesterID: requesterID,
		Status:      request.StatusScheduled,
		RepairType:  request.RepairBrakes,
		Reason:      "grinding on braking",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, reqRepo.Create(context.Background(), req))
	require.NoError(t, reqRepo.AssignMechanic(context.Background(), req.RequestID, mechanicID, time.Now().UTC()))
	require.NoError(t, negRepo.Create(context.Background(), domain.NewDeliberation(req.RequestID)))

	return &fixture{
		svc:       NewService(reqRepo, negRepo, zerolog.Nop()),
		reqRepo:   reqRepo,
		negRepo:   negRepo,
		requestID: req.RequestID,
		requester: user.Actor{UserID: requesterID, Username: "fleet.owner", Role: user.RoleUser},
		mechanic:  user.Actor{UserID: mechanicID, Username: "mech.jones", Role: user.RoleMechanic},
	}
}

func TestNegotiationFullExchange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProposed, d.Status)
	assert.Equal(t, 1, d.Round)

	d, err = f.svc.Counter(ctx, f.requester, MoveInput{RequestID: f.requestID, Amount: 420})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNegotiating, d.Status)
	assert.Equal(t, 2, d.Round)

	// Still the mechanic's turn to respond.
	_, err = f.svc.Counter(ctx, f.requester, MoveInput{RequestID: f.requestID, Amount: 400})
	assert.ErrorIs(t, err, domain.ErrOutOfTurn)

	d, err = f.svc.Counter(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 460})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Round)

	d, err = f.svc.Accept(ctx, f.requester, f.requestID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgreed, d.Status)
	require.NotNil(t, d.EffectiveCost())
	assert.Equal(t, 460.0, *d.EffectiveCost())

	history, err := f.svc.History(ctx, f.requestID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, e := range history {
		assert.Equal(t, i+1, e.Sequence)
	}
	assert.Equal(t, domain.KindPropose, history[0].Kind)
	assert.Equal(t, domain.KindAccept, history[3].Kind)
}

func TestNegotiationProposeOnlyByAssignedMechanic(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Propose(context.Background(), f.requester, MoveInput{RequestID: f.requestID, Amount: 500})
	assert.ErrorIs(t, err, request.ErrForbidden)

	stranger := user.Actor{UserID: uuid.New(), Role: user.RoleMechanic}
	_, err = f.svc.Propose(context.Background(), stranger, MoveInput{RequestID: f.requestID, Amount: 500})
	assert.ErrorIs(t, err, request.ErrForbidden)
}

func TestNegotiationCounterRequiresParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	require.NoError(t, err)

	stranger := user.Actor{UserID: uuid.New(), Role: user.RoleUser}
	_, err = f.svc.Counter(ctx, stranger, MoveInput{RequestID: f.requestID, Amount: 450})
	assert.ErrorIs(t, err, request.ErrForbidden)
}

func TestNegotiationUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Propose(context.Background(), f.mechanic, MoveInput{RequestID: uuid.New(), Amount: 500})
	assert.ErrorIs(t, err, request.ErrNotFound)
}

func TestNegotiationRejectedOnTerminalRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reqRepo.UpdateStatus(ctx, f.requestID, request.StatusInProgress, request.StatusCancelled, time.Now().UTC()))

	_, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	assert.ErrorIs(t, err, request.ErrInvalidTransition)
}

func TestNegotiationSeedsDeliberationLazily(t *testing.T) {
	// No Create call for the deliberation: assignment happened but the
	// seeding write was lost. The service reconstructs it on first touch.
	reqRepo := memory.NewRequestRepository()
	negRepo := memory.NewNegotiationRepository()
	mechanicID := uuid.New()
	req := &request.Request{
		RequestID:   uuid.New(),
		VehicleID:   uuid.New(),
		RequesterID: uuid.New(),
		Status:      request.StatusScheduled,
		RepairType:  request.RepairEngine,
		Reason:      "misfire under load",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, reqRepo.Create(context.Background(), req))
	require.NoError(t, reqRepo.AssignMechanic(context.Background(), req.RequestID, mechanicID, time.Now().UTC()))

	svc := NewService(reqRepo, negRepo, zerolog.Nop())
	mechanic := user.Actor{UserID: mechanicID, Role: user.RoleMechanic}

	d, err := svc.Propose(context.Background(), mechanic, MoveInput{RequestID: req.RequestID, Amount: 300})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProposed, d.Status)
}

func TestNegotiationRequiresAssignedMechanic(t *testing.T) {
	reqRepo := memory.NewRequestRepository()
	negRepo := memory.NewNegotiationRepository()
	req := &request.Request{
		RequestID:   uuid.New(),
		VehicleID:   uuid.New(),
		RequesterID: uuid.New(),
		Status:      request.StatusScheduled,
		RepairType:  request.RepairTires,
		Reason:      "slow leak",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, reqRepo.Create(context.Background(), req))

	svc := NewService(reqRepo, negRepo, zerolog.Nop())
	actor := user.Actor{UserID: uuid.New(), Role: user.RoleMechanic}

	_, err := svc.Propose(context.Background(), actor, MoveInput{RequestID: req.RequestID, Amount: 300})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNegotiationAgreedIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.requester, f.requestID, nil)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.mechanic, f.requestID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.Counter(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 480})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestNegotiationAcceptRaceOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	require.NoError(t, err)

	// Two sessions hold the same PROPOSED snapshot and both commit an
	// accept against it. The guard admits exactly one.
	base, err := f.negRepo.GetByRequestID(ctx, f.requestID)
	require.NoError(t, err)
	prev := base.Snapshot()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := *base
			amount, err := d.Accept(f.requester.UserID)
			if err != nil {
				errs[i] = err
				return
			}
			entry := &domain.HistoryEntry{
				RequestID: f.requestID,
				Kind:      domain.KindAccept,
				Amount:    &amount,
				ActorID:   f.requester.UserID,
				CreatedAt: time.Now().UTC(),
			}
			errs[i] = f.negRepo.CommitMove(ctx, &d, prev, entry)
		}(i)
	}
	wg.Wait()

	var winners, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, request.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, conflicts)

	d, err := f.negRepo.GetByRequestID(ctx, f.requestID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAgreed, d.Status)

	history, err := f.svc.History(ctx, f.requestID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Sequence)
	assert.Equal(t, 2, history[1].Sequence)
}

func TestNegotiationLedgerGapFreeUnderContention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	require.NoError(t, err)

	// Both parties hammer counters concurrently; retries on lost turns and
	// lost commits until each lands its moves.
	const movesPerActor = 5
	var wg sync.WaitGroup
	var failure error
	var failureMu sync.Mutex
	for _, actor := range []user.Actor{f.requester, f.mechanic} {
		wg.Add(1)
		go func(actor user.Actor) {
			defer wg.Done()
			landed := 0
			for landed < movesPerActor {
				_, err := f.svc.Counter(ctx, actor, MoveInput{RequestID: f.requestID, Amount: 400 + float64(landed)})
				switch {
				case err == nil:
					landed++
				case errors.Is(err, domain.ErrOutOfTurn), errors.Is(err, request.ErrConflict):
					// Counterparty holds the turn or won the commit.
				default:
					failureMu.Lock()
					failure = err
					failureMu.Unlock()
					return
				}
			}
		}(actor)
	}
	wg.Wait()
	require.NoError(t, failure)

	history, err := f.svc.History(ctx, f.requestID)
	require.NoError(t, err)
	require.Len(t, history, 1+2*movesPerActor)
	for i, e := range history {
		assert.Equal(t, i+1, e.Sequence)
		if i > 0 {
			assert.NotEqual(t, history[i-1].ActorID, e.ActorID, "consecutive moves by the same actor at sequence %d", e.Sequence)
		}
	}
}

func TestNegotiationAcceptRecordsAgreedAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, f.mechanic, MoveInput{RequestID: f.requestID, Amount: 500})
	require.NoError(t, err)
	_, err = f.svc.Counter(ctx, f.requester, MoveInput{RequestID: f.requestID, Amount: 420})
	require.NoError(t, err)

	d, err := f.svc.Accept(ctx, f.mechanic, f.requestID, nil)
	require.NoError(t, err)
	require.NotNil(t, d.EffectiveCost())
	assert.Equal(t, 420.0, *d.EffectiveCost())

	history, err := f.svc.History(ctx, f.requestID)
	require.NoError(t, err)
	last := history[len(history)-1]
	require.NotNil(t, last.Amount)
	assert.Equal(t, 420.0, *last.Amount)
}
