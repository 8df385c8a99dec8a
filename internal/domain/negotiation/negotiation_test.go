package negotiation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestProposeOnlyFromMechanicSelected(t *testing.T) {
	mechanic := uuid.New()
	d := NewDeliberation(uuid.New())

	if err := d.Propose(mechanic, 500); err != nil {
		t.Fatalf("expected first proposal to succeed: %v", err)
	}
	if d.Status != StatusProposed || d.Round != 1 {
		t.Fatalf("unexpected state after propose: %s round %d", d.Status, d.Round)
	}
	if err := d.Propose(mechanic, 600); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second propose, got %v", err)
	}
	if *d.ProposedCost != 500 {
		t.Fatalf("proposed cost must be immutable, got %v", *d.ProposedCost)
	}
}

func TestCounterAlternatesTurns(t *testing.T) {
	mechanic := uuid.New()
	requester := uuid.New()
	d := NewDeliberation(uuid.New())

	if err := d.Counter(requester, 400); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("counter before proposal should be invalid, got %v", err)
	}
	if err := d.Propose(mechanic, 500); err != nil {
		t.Fatal(err)
	}
	if err := d.Counter(mechanic, 480); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("mechanic countering own proposal should be out of turn, got %v", err)
	}
	if err := d.Counter(requester, 420); err != nil {
		t.Fatal(err)
	}
	if d.Status != StatusNegotiating || d.Round != 2 {
		t.Fatalf("unexpected state: %s round %d", d.Status, d.Round)
	}
	if err := d.Counter(requester, 410); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("same party twice in a row should be out of turn, got %v", err)
	}
	if err := d.Counter(mechanic, 460); err != nil {
		t.Fatal(err)
	}
	if *d.EffectiveCost() != 460 {
		t.Fatalf("effective cost should track latest counter, got %v", *d.EffectiveCost())
	}
}

func TestAcceptFreezesEffectiveCost(t *testing.T) {
	mechanic := uuid.New()
	requester := uuid.New()
	d := NewDeliberation(uuid.New())

	if err := d.Propose(mechanic, 500); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Accept(mechanic); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("mechanic accepting own proposal should be out of turn, got %v", err)
	}
	agreed, err := d.Accept(requester)
	if err != nil {
		t.Fatal(err)
	}
	if agreed != 500 {
		t.Fatalf("expected agreed cost 500, got %v", agreed)
	}
	if d.Status != StatusAgreed {
		t.Fatalf("expected AGREED, got %s", d.Status)
	}
	if _, err := d.Accept(mechanic); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("AGREED must be terminal, got %v", err)
	}
	if err := d.Counter(mechanic, 450); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("no moves after AGREED, got %v", err)
	}
}

func TestAcceptAfterCounterUsesLatestOffer(t *testing.T) {
	mechanic := uuid.New()
	requester := uuid.New()
	d := NewDeliberation(uuid.New())

	_ = d.Propose(mechanic, 500)
	_ = d.Counter(requester, 420)
	_ = d.Counter(mechanic, 460)
	agreed, err := d.Accept(requester)
	if err != nil {
		t.Fatal(err)
	}
	if agreed != 460 {
		t.Fatalf("expected 460, got %v", agreed)
	}
}

func TestReplayRebuildsState(t *testing.T) {
	requestID := uuid.New()
	mechanic := uuid.New()
	requester := uuid.New()

	amount := func(v float64) *float64 { return &v }
	entries := []*HistoryEntry{
		{RequestID: requestID, Sequence: 1, Kind: KindPropose, Amount: amount(500), ActorID: mechanic},
		{RequestID: requestID, Sequence: 2, Kind: KindNegotiate, Amount: amount(420), ActorID: requester},
		{RequestID: requestID, Sequence: 3, Kind: KindNegotiate, Amount: amount(460), ActorID: mechanic},
		{RequestID: requestID, Sequence: 4, Kind: KindAccept, ActorID: requester},
	}

	d := Replay(requestID, entries)
	if d.Status != StatusAgreed {
		t.Fatalf("expected AGREED after replay, got %s", d.Status)
	}
	if *d.EffectiveCost() != 460 {
		t.Fatalf("expected effective cost 460, got %v", *d.EffectiveCost())
	}
	if d.Round != 4 {
		t.Fatalf("expected round 4, got %d", d.Round)
	}
}
