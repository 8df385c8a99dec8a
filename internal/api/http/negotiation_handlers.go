package httpapi

import (
	"net/http"

	appNegotiation "github.com/fleetdesk/fleetdesk/internal/application/negotiation"
)

type moveRequest struct {
	Amount   float64 `json:"amount"`
	Comments *string `json:"comments,omitempty"`
}

type acceptRequest struct {
	Comments *string `json:"comments,omitempty"`
}

func (s *Server) propose(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	snap, err := s.coordinatorSvc.Propose(r.Context(), actor, appNegotiation.MoveInput{
		RequestID: id,
		Amount:    req.Amount,
		Comments:  req.Comments,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) counter(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	snap, err := s.coordinatorSvc.Counter(r.Context(), actor, appNegotiation.MoveInput{
		RequestID: id,
		Amount:    req.Amount,
		Comments:  req.Comments,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	var req acceptRequest
	_ = decodeBody(r, &req)
	actor := authUserFromContext(r.Context()).Actor()
	snap, err := s.coordinatorSvc.Accept(r.Context(), actor, id, req.Comments)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) negotiationHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "requestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid requestId")
		return
	}
	entries, err := s.coordinatorSvc.History(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"requestId": id, "history": entries})
}
