package leaderboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticIdentity authenticates every request as one fixed user, carried in
// the X-Test-User header the way the real middleware carries the JWT subject.
type staticIdentity struct{}

func (staticIdentity) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test-User") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (staticIdentity) UserID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-Test-User"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func newTestMux(repo *fakeLeaderboardRepo) *http.ServeMux {
	mux := http.NewServeMux()
	NewService(NewApp(repo, nil), staticIdentity{}).RegisterRoutes(mux)
	return mux
}

func doGet(mux *http.ServeMux, path string, user uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestUserStatsEndpoint(t *testing.T) {
	mux := newTestMux(&fakeLeaderboardRepo{wins: 3, games: 4})

	rec := doGet(mux, "/api/leaderboard/user-stats", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)

	var stats UserStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalWins)
	assert.Equal(t, 1, stats.TotalLosses)
	assert.Equal(t, "75%", stats.WinRate)
}

func TestUserStatsEndpointRequiresAuth(t *testing.T) {
	mux := newTestMux(&fakeLeaderboardRepo{})

	rec := doGet(mux, "/api/leaderboard/user-stats", uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionsEndpoint(t *testing.T) {
	winning := 5
	mux := newTestMux(&fakeLeaderboardRepo{sessions: []Session{{
		RoundID:       uuid.New(),
		WinningNumber: &winning,
		Participants: []SessionParticipant{
			{UserID: uuid.New(), Username: "alice", ChosenNumber: &winning, IsWinner: true},
		},
	}}})

	rec := doGet(mux, "/api/leaderboard/sessions?startDate=2025-06-01&endDate=2025-06-18", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Participants, 1)
	assert.Equal(t, "alice", sessions[0].Participants[0].Username)
	assert.True(t, sessions[0].Participants[0].IsWinner)
}

func TestSessionsEndpointRejectsBadDate(t *testing.T) {
	mux := newTestMux(&fakeLeaderboardRepo{})

	rec := doGet(mux, "/api/leaderboard/sessions?startDate=not-a-date", uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionsEndpointReturnsEmptyList(t *testing.T) {
	mux := newTestMux(&fakeLeaderboardRepo{})

	rec := doGet(mux, "/api/leaderboard/sessions", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
