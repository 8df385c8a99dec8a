package httpapi

import (
	"net/http"
	"time"

	appFuel "github.com/fleetdesk/fleetdesk/internal/application/fuel"
	appVehicle "github.com/fleetdesk/fleetdesk/internal/application/vehicle"
	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
)

type vehicleCreateRequest struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Plate string `json:"plate"`
}

type vehicleUpdateRequest struct {
	Make   *string `json:"make,omitempty"`
	Model  *string `json:"model,omitempty"`
	Year   *int    `json:"year,omitempty"`
	Plate  *string `json:"plate,omitempty"`
	Status *string `json:"status,omitempty"`
}

type fuelLogRequest struct {
	Liters     float64   `json:"liters"`
	Cost       float64   `json:"cost"`
	OdometerKm float64   `json:"odometerKm"`
	FilledAt   time.Time `json:"filledAt"`
}

func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	v, err := s.vehicleSvc.Create(r.Context(), appVehicle.CreateInput{
		Make:  req.Make,
		Model: req.Model,
		Year:  req.Year,
		Plate: req.Plate,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	var filter vehicle.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		st := vehicle.Status(v)
		filter.Status = &st
	}
	if v := r.URL.Query().Get("plate"); v != "" {
		filter.Plate = &v
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	vehicles, err := s.vehicleSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"vehicles": vehicles})
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "vehicleId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid vehicleId")
		return
	}
	v, err := s.vehicleSvc.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if v == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "vehicle not found")
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "vehicleId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid vehicleId")
		return
	}
	var req vehicleUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	in := appVehicle.UpdateInput{
		Make:  req.Make,
		Model: req.Model,
		Year:  req.Year,
		Plate: req.Plate,
	}
	if req.Status != nil {
		st := vehicle.Status(*req.Status)
		in.Status = &st
	}
	v, err := s.vehicleSvc.Update(r.Context(), id, in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) createFuelLog(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "vehicleId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid vehicleId")
		return
	}
	var req fuelLogRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	log, err := s.fuelSvc.Create(r.Context(), actor, appFuel.CreateInput{
		VehicleID:  id,
		Liters:     req.Liters,
		Cost:       req.Cost,
		OdometerKm: req.OdometerKm,
		FilledAt:   req.FilledAt,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, log)
}

func (s *Server) listFuelLogs(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "vehicleId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid vehicleId")
		return
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	logs, err := s.fuelSvc.ListByVehicle(r.Context(), id, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"vehicleId": id, "fuelLogs": logs})
}
