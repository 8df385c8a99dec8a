package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appLogistics "github.com/fleetdesk/fleetdesk/internal/application/logistics"
	"github.com/fleetdesk/fleetdesk/internal/domain/logistics"
)

type planRequest struct {
	PickupRequired bool       `json:"pickupRequired"`
	ReturnRequired bool       `json:"returnRequired"`
	PickupAddress  *string    `json:"pickupAddress,omitempty"`
	ReturnAddress  *string    `json:"returnAddress,omitempty"`
	WindowStart    *time.Time `json:"windowStart,omitempty"`
	WindowEnd      *time.Time `json:"windowEnd,omitempty"`
	ContactName    *string    `json:"contactName,omitempty"`
	ContactPhone   *string    `json:"contactPhone,omitempty"`
}

type eventRequest struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Note      *string    `json:"note,omitempty"`
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req planRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	snap, err := s.coordinatorSvc.UpdatePlan(r.Context(), actor, id, appLogistics.PlanInput{
		PickupRequired: req.PickupRequired,
		ReturnRequired: req.ReturnRequired,
		PickupAddress:  req.PickupAddress,
		ReturnAddress:  req.ReturnAddress,
		WindowStart:    req.WindowStart,
		WindowEnd:      req.WindowEnd,
		ContactName:    req.ContactName,
		ContactPhone:   req.ContactPhone,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) recordLogisticsEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	// URL form is kebab-case (picked-up); the domain set is SNAKE_UPPER.
	raw := strings.ToUpper(strings.ReplaceAll(chi.URLParam(r, "event"), "-", "_"))
	event, err := logistics.ParseEvent(raw)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	var req eventRequest
	_ = decodeBody(r, &req)
	actor := authUserFromContext(r.Context()).Actor()
	snap, err := s.coordinatorSvc.RecordEvent(r.Context(), actor, id, event, req.Timestamp, req.Note)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
