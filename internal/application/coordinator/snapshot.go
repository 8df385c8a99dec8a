package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/user"
)

// VehicleInfo is the display metadata attached to a snapshot. The core does
// not own or validate it.
type VehicleInfo struct {
	VehicleID   uuid.UUID `json:"vehicleId"`
	DisplayName string    `json:"displayName"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Plate       string    `json:"plate"`
}

// PersonInfo is the display metadata for a request party.
type PersonInfo struct {
	UserID      uuid.UUID `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        user.Role `json:"role"`
}

// Snapshot is the composite read model the UI renders: the request, its
// deliberation and ledger, logistics state, and invoice, plus display
// metadata. The UI holds it as a read-only cache, never as authoritative
// state.
type Snapshot struct {
	Request      *request.Request            `json:"request"`
	Vehicle      *VehicleInfo                `json:"vehicle,omitempty"`
	Requester    *PersonInfo                 `json:"requester,omitempty"`
	Mechanic     *PersonInfo                 `json:"mechanic,omitempty"`
	Deliberation *negotiation.Deliberation   `json:"deliberation,omitempty"`
	History      []*negotiation.HistoryEntry `json:"history"`
	Plan         *logistics.Plan             `json:"plan,omitempty"`
	Trail        *logistics.Trail            `json:"trail"`
	Stage        logistics.Stage             `json:"stage"`
	Invoice      *invoice.Invoice            `json:"invoice,omitempty"`
}

// SnapshotCache is a read-through cache in front of snapshot assembly.
// Implementations must treat a miss as (nil, nil).
type SnapshotCache interface {
	Get(ctx context.Context, requestID uuid.UUID) (*Snapshot, error)
	Set(ctx context.Context, requestID uuid.UUID, snap *Snapshot) error
	Invalidate(ctx context.Context, requestID uuid.UUID) error
}
