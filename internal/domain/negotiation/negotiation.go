package negotiation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents cost deliberation status.
type Status string

const (
	StatusMechanicSelected Status = "MECHANIC_SELECTED"
	StatusProposed         Status = "PROPOSED"
	StatusNegotiating      Status = "NEGOTIATING"
	StatusAgreed           Status = "AGREED"
)

var (
	ErrInvalidTransition = errors.New("invalid negotiation transition")
	ErrOutOfTurn         = errors.New("actor must wait for the counterparty to respond")
	ErrNotFound          = errors.New("cost deliberation not found")
)

// Deliberation is the cost negotiation state for one maintenance request.
// Created when a mechanic is selected; superseded, never deleted, once AGREED.
type Deliberation struct {
	ID             int64      `json:"id"`
	RequestID      uuid.UUID  `json:"requestId"`
	Status         Status     `json:"status"`
	ProposedCost   *float64   `json:"proposedCost,omitempty"`
	NegotiatedCost *float64   `json:"negotiatedCost,omitempty"`
	Round          int        `json:"round"`
	LastActorID    *uuid.UUID `json:"lastActorId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewDeliberation creates a deliberation awaiting the mechanic's first offer.
func NewDeliberation(requestID uuid.UUID) *Deliberation {
	now := time.Now().UTC()
	return &Deliberation{
		RequestID: requestID,
		Status:    StatusMechanicSelected,
		Round:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo validates deliberation status transition.
func (d *Deliberation) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusMechanicSelected: {StatusProposed},
		StatusProposed:         {StatusNegotiating, StatusAgreed},
		StatusNegotiating:      {StatusNegotiating, StatusAgreed},
		StatusAgreed:           {},
	}
	for _, s := range transitions[d.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// EffectiveCost returns the cost currently on the table: the latest
// counter-offer if any, otherwise the opening proposal.
func (d *Deliberation) EffectiveCost() *float64 {
	if d.NegotiatedCost != nil {
		return d.NegotiatedCost
	}
	return d.ProposedCost
}

// isTurn checks the turn-taking invariant: a party may not act twice in a row
// on the same open offer. The very first move has no predecessor.
func (d *Deliberation) isTurn(actorID uuid.UUID) bool {
	return d.LastActorID == nil || *d.LastActorID != actorID
}

// Propose records the mechanic's opening offer. The proposed cost is
// immutable once set.
func (d *Deliberation) Propose(actorID uuid.UUID, amount float64) error {
	if !d.CanTransitionTo(StatusProposed) {
		return ErrInvalidTransition
	}
	d.ProposedCost = &amount
	d.Status = StatusProposed
	d.Round = 1
	d.LastActorID = &actorID
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Counter records a counter-offer from the party opposite the last mover.
func (d *Deliberation) Counter(actorID uuid.UUID, amount float64) error {
	if !d.CanTransitionTo(StatusNegotiating) {
		return ErrInvalidTransition
	}
	if !d.isTurn(actorID) {
		return ErrOutOfTurn
	}
	d.NegotiatedCost = &amount
	d.Status = StatusNegotiating
	d.Round++
	d.LastActorID = &actorID
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept freezes the cost on the table and closes the deliberation.
// Returns the agreed amount.
func (d *Deliberation) Accept(actorID uuid.UUID) (float64, error) {
	if !d.CanTransitionTo(StatusAgreed) {
		return 0, ErrInvalidTransition
	}
	if !d.isTurn(actorID) {
		return 0, ErrOutOfTurn
	}
	cost := d.EffectiveCost()
	if cost == nil {
		return 0, ErrInvalidTransition
	}
	d.Status = StatusAgreed
	d.Round++
	d.LastActorID = &actorID
	d.UpdatedAt = time.Now().UTC()
	return *cost, nil
}

// Guard captures the snapshot a move was validated against. Commits re-check
// it so that two browsers racing on the same offer cannot both win.
type Guard struct {
	Status      Status
	Round       int
	LastActorID *uuid.UUID
}

// Snapshot returns the deliberation's current guard.
func (d *Deliberation) Snapshot() Guard {
	return Guard{Status: d.Status, Round: d.Round, LastActorID: d.LastActorID}
}
