package invoice

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

	domain "github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/memory"
)

type fixture struct {
	svc       *Service
	reqRepo   *memory.RequestRepository
	negRepo   *memory.NegotiationRepository
	invRepo   *memory.InvoiceRepository
	requestID uuid.UUID
	requester user.Actor
	mechanic  user.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reqRepo := memory.NewRequestRepository()
	negRepo := memory.NewNegotiationRepository()
	invRepo := memory.NewInvoiceRepository(reqRepo, negRepo)

	requesterID := uuid.New()
	mechanicID := uuid.New()
	req := &request.Request{
		RequestID:   uuid.New(),
		VehicleID:   uuid.New(),
		RequesterID: requesterID,
		Status:      request.StatusScheduled,
		RepairType:  request.RepairElectrical,
		Reason:      "alternator warning light",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, reqRepo.Create(context.Background(), req))
	require.NoError(t, reqRepo.AssignMechanic(context.Background(), req.RequestID, mechanicID, time.Now().UTC()))

	return &fixture{
		svc:       NewService(reqRepo, negRepo, invRepo, DefaultDivergenceRule, zerolog.Nop()),
		reqRepo:   reqRepo,
		negRepo:   negRepo,
		invRepo:   invRepo,
		requestID: req.RequestID,
		requester: user.Actor{UserID: requesterID, Role: user.RoleUser},
		mechanic:  user.Actor{UserID: mechanicID, Role: user.RoleMechanic},
	}
}

// agree seeds a deliberation settled at the given amount.
func (f *fixture) agree(t *testing.T, amount float64) {
	t.Helper()
	ctx := context.Background()
	d := negotiation.NewDeliberation(f.requestID)
	require.NoError(t, f.negRepo.Create(ctx, d))
	prev := d.Snapshot()
	require.NoError(t, d.Propose(f.mechanic.UserID, amount))
	entry := &negotiation.HistoryEntry{RequestID: f.requestID, Kind: negotiation.KindPropose, Amount: &amount, ActorID: f.mechanic.UserID, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.negRepo.CommitMove(ctx, d, prev, entry))
	prev = d.Snapshot()
	_, err := d.Accept(f.requester.UserID)
	require.NoError(t, err)
	entry = &negotiation.HistoryEntry{RequestID: f.requestID, Kind: negotiation.KindAccept, Amount: &amount, ActorID: f.requester.UserID, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.negRepo.CommitMove(ctx, d, prev, entry))
}

func TestCompleteIssuesInvoiceAndClosesRequest(t *testing.T) {
	f := newFixture(t)
	f.agree(t, 500)
	ctx := context.Background()

	res, err := f.svc.Complete(ctx, f.mechanic, CompleteInput{
		RequestID:  f.requestID,
		LaborHours: 3.5,
		TotalCost:  510,
		Parts:      []domain.PartUsed{{Name: "alternator", Quantity: 1, UnitPrice: 320}},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Warning)
	assert.Equal(t, 510.0, res.Invoice.TotalCost)

	req, err := f.reqRepo.GetByID(ctx, f.requestID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusCompleted, req.Status)

	inv, err := f.svc.Get(ctx, f.requestID)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, f.mechanic.UserID, inv.IssuedBy)
}

func TestCompleteRequiresAgreedDeliberation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d := negotiation.NewDeliberation(f.requestID)
	require.NoError(t, f.negRepo.Create(ctx, d))
	prev := d.Snapshot()
	amount := 500.0
	require.NoError(t, d.Propose(f.mechanic.UserID, amount))
	entry := &negotiation.HistoryEntry{RequestID: f.requestID, Kind: negotiation.KindPropose, Amount: &amount, ActorID: f.mechanic.UserID, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.negRepo.CommitMove(ctx, d, prev, entry))

	_, err := f.svc.Complete(ctx, f.mechanic, CompleteInput{RequestID: f.requestID, TotalCost: 500})
	assert.ErrorIs(t, err, domain.ErrNegotiationNotResolved)
}

func TestCompleteWithoutDeliberation(t *testing.T) {
	// No deliberation at all means no price was ever contested; completion
	// proceeds without a warning baseline.
	f := newFixture(t)

	res, err := f.svc.Complete(context.Background(), f.mechanic, CompleteInput{RequestID: f.requestID, TotalCost: 200})
	require.NoError(t, err)
	assert.Nil(t, res.Warning)
}

func TestCompleteMechanicOnly(t *testing.T) {
	f := newFixture(t)
	f.agree(t, 500)

	_, err := f.svc.Complete(context.Background(), f.requester, CompleteInput{RequestID: f.requestID, TotalCost: 500})
	assert.ErrorIs(t, err, request.ErrForbidden)

	admin := user.Actor{UserID: uuid.New(), Role: user.RoleAdmin}
	_, err = f.svc.Complete(context.Background(), admin, CompleteInput{RequestID: f.requestID, TotalCost: 500})
	assert.ErrorIs(t, err, request.ErrForbidden)
}

func TestCompleteDivergenceWarning(t *testing.T) {
	f := newFixture(t)
	f.agree(t, 500)

	res, err := f.svc.Complete(context.Background(), f.mechanic, CompleteInput{RequestID: f.requestID, TotalCost: 600})
	require.NoError(t, err)
	require.NotNil(t, res.Warning)
	assert.Contains(t, *res.Warning, "diverges")
	assert.Equal(t, 600.0, res.Invoice.TotalCost)
}

func TestCompleteOnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.agree(t, 500)
	ctx := context.Background()

	_, err := f.svc.Complete(ctx, f.mechanic, CompleteInput{RequestID: f.requestID, TotalCost: 500})
	require.NoError(t, err)

	// The request is now terminal, which trips before the unique guard.
	_, err = f.svc.Complete(ctx, f.mechanic, CompleteInput{RequestID: f.requestID, TotalCost: 500})
	assert.ErrorIs(t, err, request.ErrInvalidTransition)
}

func TestCompleteRaceIssuesSingleInvoice(t *testing.T) {
	f := newFixture(t)
	f.agree(t, 500)
	ctx := context.Background()

	// Two completion submissions race; exactly one invoice lands.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Complete(ctx, f.mechanic, CompleteInput{RequestID: f.requestID, TotalCost: 500})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		// The loser trips on whichever check it reaches first: the issued
		// invoice, the lost status commit, or the now-terminal request.
		if !errors.Is(err, domain.ErrAlreadyIssued) &&
			!errors.Is(err, request.ErrConflict) &&
			!errors.Is(err, request.ErrInvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	inv, err := f.svc.Get(ctx, f.requestID)
	require.NoError(t, err)
	require.NotNil(t, inv)

	req, err := f.reqRepo.GetByID(ctx, f.requestID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusCompleted, req.Status)
}

func TestCreateAndCompleteRechecksDeliberation(t *testing.T) {
	// A deliberation opened after the service's read must still block the
	// commit: the repository re-asserts resolution inside the write.
	f := newFixture(t)
	ctx := context.Background()

	d := negotiation.NewDeliberation(f.requestID)
	require.NoError(t, f.negRepo.Create(ctx, d))
	prev := d.Snapshot()
	amount := 500.0
	require.NoError(t, d.Propose(f.mechanic.UserID, amount))
	entry := &negotiation.HistoryEntry{RequestID: f.requestID, Kind: negotiation.KindPropose, Amount: &amount, ActorID: f.mechanic.UserID, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.negRepo.CommitMove(ctx, d, prev, entry))

	err := f.invRepo.CreateAndComplete(ctx, &domain.Invoice{
		RequestID: f.requestID,
		TotalCost: 500,
		IssuedBy:  f.mechanic.UserID,
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrNegotiationNotResolved)

	req, err := f.reqRepo.GetByID(ctx, f.requestID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusInProgress, req.Status)
}

func TestCompleteRejectsInvalidInvoice(t *testing.T) {
	f := newFixture(t)
	f.agree(t, 500)

	_, err := f.svc.Complete(context.Background(), f.mechanic, CompleteInput{
		RequestID: f.requestID,
		TotalCost: 500,
		Parts:     []domain.PartUsed{{Name: "", Quantity: 1, UnitPrice: 10}},
	})
	assert.Error(t, err)
}

func TestCompleteUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Complete(context.Background(), f.mechanic, CompleteInput{RequestID: uuid.New(), TotalCost: 100})
	assert.ErrorIs(t, err, request.ErrNotFound)
}
