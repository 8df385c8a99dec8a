package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	appInvoice "github.com/fleetdesk/fleetdesk/internal/application/invoice"
	appRequest "github.com/fleetdesk/fleetdesk/internal/application/request"
	"github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
)

type requestCreateRequest struct {
	VehicleID  uuid.UUID `json:"vehicleId"`
	RepairType string    `json:"repairType"`
	Reason     string    `json:"reason"`
	Comments   *string   `json:"comments,omitempty"`
}

type assignRequest struct {
	MechanicID uuid.UUID `json:"mechanicId"`
}

type completeRequest struct {
	LaborHours float64            `json:"laborHours"`
	TotalCost  float64            `json:"totalCost"`
	Parts      []invoice.PartUsed `json:"parts,omitempty"`
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var req requestCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	created, err := s.coordinatorSvc.CreateRequest(r.Context(), actor, appRequest.CreateInput{
		VehicleID:  req.VehicleID,
		RepairType: request.RepairType(req.RepairType),
		Reason:     req.Reason,
		Comments:   req.Comments,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	var filter request.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		st := request.Status(v)
		filter.Status = &st
	}
	if v := r.URL.Query().Get("vehicleId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid vehicleId")
			return
		}
		filter.VehicleID = &id
	}
	if v := r.URL.Query().Get("mechanicId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid mechanicId")
			return
		}
		filter.MechanicID = &id
	}
	// Non-admins only ever see their own side of the fleet: a mechanic may
	// list their assigned queue, anyone else lists what they filed.
	actor := authUserFromContext(r.Context())
	if !actor.Actor().IsAdmin() {
		if filter.MechanicID == nil || *filter.MechanicID != actor.UserID {
			id := actor.UserID
			filter.RequesterID = &id
			filter.MechanicID = nil
		}
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	requests, err := s.coordinatorSvc.ListRequests(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	snap, err := s.coordinatorSvc.GetSnapshot(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) assignMechanic(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req assignRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	updated, err := s.coordinatorSvc.AssignMechanic(r.Context(), actor, id, req.MechanicID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) cancelRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	updated, err := s.coordinatorSvc.CancelRequest(r.Context(), actor, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) completeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req completeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	result, err := s.coordinatorSvc.Complete(r.Context(), actor, appInvoice.CompleteInput{
		RequestID:  id,
		LaborHours: req.LaborHours,
		TotalCost:  req.TotalCost,
		Parts:      req.Parts,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
