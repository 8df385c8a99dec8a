package request

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents maintenance request status.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// RepairType classifies the requested repair.
type RepairType string

const (
	RepairEngine     RepairType = "ENGINE"
	RepairBrakes     RepairType = "BRAKES"
	RepairTires      RepairType = "TIRES"
	RepairElectrical RepairType = "ELECTRICAL"
	RepairBody       RepairType = "BODY"
	RepairRoutine    RepairType = "ROUTINE"
	RepairOther      RepairType = "OTHER"
)

// Sentinels shared by every operation addressed through a maintenance request.
var (
	ErrNotFound          = errors.New("maintenance request not found")
	ErrForbidden         = errors.New("actor not allowed to perform this action")
	ErrConflict          = errors.New("request state changed concurrently, refresh and retry")
	ErrInvalidTransition = errors.New("invalid request status transition")
)

// Request represents a vehicle maintenance request.
type Request struct {
	ID          int64      `json:"id"`
	RequestID   uuid.UUID  `json:"requestId"`
	VehicleID   uuid.UUID  `json:"vehicleId"`
	RequesterID uuid.UUID  `json:"requesterId"`
	MechanicID  *uuid.UUID `json:"mechanicId,omitempty"`
	Status      Status     `json:"status"`
	RepairType  RepairType `json:"repairType"`
	Reason      string     `json:"reason"`
	Comments    *string    `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CanTransitionTo validates request status transition.
func (r *Request) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusScheduled:  {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}
	for _, s := range transitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer change status.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// IsMechanic reports whether actorID is the assigned mechanic.
func (r *Request) IsMechanic(actorID uuid.UUID) bool {
	return r.MechanicID != nil && *r.MechanicID == actorID
}

// IsParty reports whether actorID is the requester or the assigned mechanic,
// the two parties allowed to deliberate over cost.
func (r *Request) IsParty(actorID uuid.UUID) bool {
	return r.RequesterID == actorID || r.IsMechanic(actorID)
}

// ValidateRepairType rejects repair types outside the closed set.
func ValidateRepairType(t RepairType) error {
	switch t {
	case RepairEngine, RepairBrakes, RepairTires, RepairElectrical, RepairBody, RepairRoutine, RepairOther:
		return nil
	default:
		return errors.New("invalid repair type")
	}
}
