package request

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter controls request listing.
type Filter struct {
	Status      *Status
	VehicleID   *uuid.UUID
	RequesterID *uuid.UUID
	MechanicID  *uuid.UUID
}

// Repository defines persistence for maintenance requests.
//
// Guarded mutators re-check the caller's observed snapshot inside the write
// and return ErrConflict when another writer got there first.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, requestID uuid.UUID) (*Request, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Request, error)

	// AssignMechanic places mechanicID on a still-unassigned SCHEDULED request
	// and moves it to IN_PROGRESS.
	AssignMechanic(ctx context.Context, requestID, mechanicID uuid.UUID, updatedAt time.Time) error

	// UpdateStatus transitions from the observed status to target.
	UpdateStatus(ctx context.Context, requestID uuid.UUID, from, to Status, updatedAt time.Time) error
}
