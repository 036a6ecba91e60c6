package round

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Identity is the authentication collaborator: it guards handlers and
// resolves the authenticated user id, which the manager trusts verbatim.
type Identity interface {
	Authenticate(next http.HandlerFunc) http.HandlerFunc
	UserID(r *http.Request) (uuid.UUID, bool)
}

// Resumer restarts the suspended driver when a client explicitly asks for
// status.
type Resumer interface {
	Resume()
}

// Service exposes the round operations over JSON HTTP.
type Service struct {
	app      *Manager
	identity Identity
	resumer  Resumer
}

// NewService creates the game HTTP service.
func NewService(app *Manager, identity Identity, resumer Resumer) *Service {
	return &Service{
		app:      app,
		identity: identity,
		resumer:  resumer,
	}
}

// RegisterRoutes registers the game endpoints on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/game/join", s.identity.Authenticate(s.handleJoin))
	mux.HandleFunc("DELETE /api/game/leave", s.identity.Authenticate(s.handleLeave))
	mux.HandleFunc("POST /api/game/choose-number", s.identity.Authenticate(s.handleChooseNumber))
	mux.HandleFunc("GET /api/game/status", s.identity.Authenticate(s.handleStatus))
	mux.HandleFunc("GET /api/game/my-round", s.identity.Authenticate(s.handleMyRound))
	mux.HandleFunc("GET /api/game/latest-result", s.identity.Authenticate(s.handleLatestResult))
}

type joinRequest struct {
	// RoundID is accepted for forward compatibility; joins always target the
	// current open round.
	RoundID *uuid.UUID `json:"roundId,omitempty"`
}

type chooseNumberRequest struct {
	Number int `json:"number"`
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req joinRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	p, err := s.app.Join(r.Context(), userID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Service) handleLeave(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := s.app.Leave(r.Context(), userID); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "left round successfully"})
}

func (s *Service) handleChooseNumber(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req chooseNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := s.app.ChooseNumber(r.Context(), userID, req.Number)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	// An explicit status request is a liveness signal: make sure the driver
	// is ticking before answering.
	s.resumer.Resume()

	status, err := s.app.GetStatus(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	resp := map[string]any{
		"hasActiveRound":   status.HasActiveRound,
		"timeLeft":         status.TimeLeft,
		"participantCount": status.ParticipantCount,
		"queueCount":       status.QueueCount,
	}
	if status.Round != nil {
		resp["roundId"] = status.Round.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleMyRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	p, err := s.app.UserRound(r.Context(), userID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Service) handleLatestResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	res, err := s.app.LatestResult(r.Context(), userID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoundEnded),
		errors.Is(err, ErrRoundFull),
		errors.Is(err, ErrNoActiveRound),
		errors.Is(err, ErrNumberOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrQueuedCannotChoose):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrRoundNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("game request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
