package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAuth "github.com/fleetdesk/fleetdesk/internal/application/auth"
	appCoordinator "github.com/fleetdesk/fleetdesk/internal/application/coordinator"
	appFuel "github.com/fleetdesk/fleetdesk/internal/application/fuel"
	appUser "github.com/fleetdesk/fleetdesk/internal/application/user"
	appVehicle "github.com/fleetdesk/fleetdesk/internal/application/vehicle"
	"github.com/fleetdesk/fleetdesk/internal/domain/invoice"
	"github.com/fleetdesk/fleetdesk/internal/domain/logistics"
	"github.com/fleetdesk/fleetdesk/internal/domain/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/domain/request"
	domainUser "github.com/fleetdesk/fleetdesk/internal/domain/user"
	"github.com/fleetdesk/fleetdesk/internal/domain/vehicle"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	coordinatorSvc      *appCoordinator.Service
	authSvc             *appAuth.Service
	userSvc             *appUser.Service
	vehicleSvc          *appVehicle.Service
	fuelSvc             *appFuel.Service
	sseHub              *sse.Hub
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	coordinatorSvc *appCoordinator.Service,
	authSvc *appAuth.Service,
	userSvc *appUser.Service,
	vehicleSvc *appVehicle.Service,
	fuelSvc *appFuel.Service,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		coordinatorSvc:      coordinatorSvc,
		authSvc:             authSvc,
		userSvc:             userSvc,
		vehicleSvc:          vehicleSvc,
		fuelSvc:             fuelSvc,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/bootstrap", s.bootstrapAdmin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/vehicles", func(r chi.Router) {
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/", s.createVehicle)
				r.Get("/", s.listVehicles)
				r.Get("/{vehicleId}", s.getVehicle)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Patch("/{vehicleId}", s.updateVehicle)

				r.Post("/{vehicleId}/fuel", s.createFuelLog)
				r.Get("/{vehicleId}/fuel", s.listFuelLogs)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", s.createRequest)
				r.Get("/", s.listRequests)
				r.Get("/{requestId}", s.getSnapshot)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/{requestId}/assign", s.assignMechanic)
				r.Post("/{requestId}/cancel", s.cancelRequest)

				r.Post("/{requestId}/negotiation/propose", s.propose)
				r.Post("/{requestId}/negotiation/counter", s.counter)
				r.Post("/{requestId}/negotiation/accept", s.accept)
				r.Get("/{requestId}/negotiation/history", s.negotiationHistory)

				r.Put("/{requestId}/logistics/plan", s.updatePlan)
				r.Post("/{requestId}/logistics/events/{event}", s.recordLogisticsEvent)

				r.Post("/{requestId}/complete", s.completeRequest)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/", s.createUser)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Get("/", s.listUsers)
				r.Get("/{userId}", s.getUser)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Patch("/{userId}", s.updateUser)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Put("/{userId}/password", s.setUserPassword)
			})

			r.Get("/events/stream", s.streamEvents)
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondDomainError maps workflow errors onto the API's error contract.
// Conflicts carry a retryable hint so clients know a reread-and-retry is
// the correct response.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, request.ErrConflict):
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "CONFLICT",
			"message":   err.Error(),
			"retryable": true,
		})
	case errors.Is(err, negotiation.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, request.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, negotiation.ErrOutOfTurn):
		respondError(w, http.StatusConflict, "OUT_OF_TURN", err.Error())
	case errors.Is(err, logistics.ErrSequenceViolation):
		respondError(w, http.StatusConflict, "SEQUENCE_VIOLATION", err.Error())
	case errors.Is(err, logistics.ErrAlreadyRecorded):
		respondError(w, http.StatusConflict, "ALREADY_RECORDED", err.Error())
	case errors.Is(err, logistics.ErrPlanFrozen):
		respondError(w, http.StatusConflict, "PLAN_FROZEN", err.Error())
	case errors.Is(err, invoice.ErrNegotiationNotResolved):
		respondError(w, http.StatusConflict, "NEGOTIATION_NOT_RESOLVED", err.Error())
	case errors.Is(err, invoice.ErrAlreadyIssued):
		respondError(w, http.StatusConflict, "ALREADY_ISSUED", err.Error())
	case errors.Is(err, request.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, request.ErrNotFound),
		errors.Is(err, negotiation.ErrNotFound),
		errors.Is(err, vehicle.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, logistics.ErrUnknownEvent):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
