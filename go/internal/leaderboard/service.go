package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Identity guards the per-user endpoints and resolves the caller's id.
type Identity interface {
	Authenticate(next http.HandlerFunc) http.HandlerFunc
	UserID(r *http.Request) (uuid.UUID, bool)
}

// Service exposes leaderboard reads over JSON HTTP.
type Service struct {
	app      *App
	identity Identity
}

// NewService creates the leaderboard HTTP service.
func NewService(app *App, identity Identity) *Service {
	return &Service{app: app, identity: identity}
}

// RegisterRoutes registers the leaderboard endpoints on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leaderboard", s.handleTopPlayers)
	mux.HandleFunc("GET /api/leaderboard/period", s.handlePlayersByPeriod)
	mux.HandleFunc("GET /api/leaderboard/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/leaderboard/user-stats", s.identity.Authenticate(s.handleUserStats))
}

func (s *Service) handleTopPlayers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	standings, err := s.app.TopPlayers(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load top players")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if standings == nil {
		standings = []PlayerStanding{}
	}
	writeJSON(w, standings)
}

func (s *Service) handlePlayersByPeriod(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "day"
	}

	standings, err := s.app.PlayersByPeriod(r.Context(), period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if standings == nil {
		standings = []PlayerStanding{}
	}
	writeJSON(w, standings)
}

func (s *Service) handleSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sessions, err := s.app.SessionsByDate(r.Context(), query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	writeJSON(w, sessions)
}

func (s *Service) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identity.UserID(r)
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	stats, err := s.app.UserStats(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load user stats")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
