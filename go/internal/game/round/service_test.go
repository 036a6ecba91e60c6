package round

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

type countingResumer struct {
	resumed int
}

func (c *countingResumer) Resume() { c.resumed++ }

func newTestService(t *testing.T) (*memStore, *http.ServeMux, *countingResumer) {
	t.Helper()
	store := newMemStore()
	m, _ := newTestManager(t, store, DefaultConfig())
	resumer := &countingResumer{}
	mux := http.NewServeMux()
	NewService(m, staticIdentity{}, resumer).RegisterRoutes(mux)
	return store, mux, resumer
}

func doRequest(mux *http.ServeMux, method, path string, user uuid.UUID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestJoinEndpoint(t *testing.T) {
	store, mux, _ := newTestService(t)
	user := store.addUser("alice")

	rec := doRequest(mux, http.MethodPost, "/api/game/join", user, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		UserID    uuid.UUID `json:"user_id"`
		IsInQueue bool      `json:"is_in_queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user, resp.UserID)
	assert.False(t, resp.IsInQueue)
}

func TestJoinEndpointRequiresAuth(t *testing.T) {
	_, mux, _ := newTestService(t)

	rec := doRequest(mux, http.MethodPost, "/api/game/join", uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChooseNumberEndpoint(t *testing.T) {
	store, mux, _ := newTestService(t)
	user := store.addUser("alice")

	require.Equal(t, http.StatusCreated, doRequest(mux, http.MethodPost, "/api/game/join", user, "").Code)

	rec := doRequest(mux, http.MethodPost, "/api/game/choose-number", user, `{"number":7}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(mux, http.MethodPost, "/api/game/choose-number", user, `{"number":12}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(mux, http.MethodPost, "/api/game/choose-number", user, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChooseNumberEndpointForbidsQueued(t *testing.T) {
	store, mux, _ := newTestService(t)
	user := store.addUser("alice")

	p := doJoin(t, mux, store, user)
	queued := store.addUser("bob")
	store.seedParticipant(CreateParticipantRequest{
		ID: uuid.New(), RoundID: p.RoundID, UserID: queued, InQueue: true,
	})

	rec := doRequest(mux, http.MethodPost, "/api/game/choose-number", queued, `{"number":5}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLeaveEndpoint(t *testing.T) {
	store, mux, _ := newTestService(t)
	user := store.addUser("alice")

	rec := doRequest(mux, http.MethodDelete, "/api/game/leave", user, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "leaving without membership fails")

	require.Equal(t, http.StatusCreated, doRequest(mux, http.MethodPost, "/api/game/join", user, "").Code)
	rec = doRequest(mux, http.MethodDelete, "/api/game/leave", user, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusEndpointResumesDriver(t *testing.T) {
	store, mux, resumer := newTestService(t)
	user := store.addUser("alice")

	rec := doRequest(mux, http.MethodGet, "/api/game/status", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resumer.resumed)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["hasActiveRound"])
	assert.NotContains(t, resp, "roundId")

	require.Equal(t, http.StatusCreated, doRequest(mux, http.MethodPost, "/api/game/join", user, "").Code)

	rec = doRequest(mux, http.MethodGet, "/api/game/status", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resumer.resumed)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["hasActiveRound"])
	assert.Equal(t, float64(1), resp["participantCount"])
	assert.Contains(t, resp, "roundId")
}

func TestMyRoundEndpoint(t *testing.T) {
	store, mux, _ := newTestService(t)
	user := store.addUser("alice")

	rec := doRequest(mux, http.MethodGet, "/api/game/my-round", user, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusCreated, doRequest(mux, http.MethodPost, "/api/game/join", user, "").Code)
	rec = doRequest(mux, http.MethodGet, "/api/game/my-round", user, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLatestResultEndpointNotFound(t *testing.T) {
	store, mux, _ := newTestService(t)
	user := store.addUser("alice")

	rec := doRequest(mux, http.MethodGet, "/api/game/latest-result", user, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func doJoin(t *testing.T, mux *http.ServeMux, store *memStore, user uuid.UUID) *joinedParticipant {
	t.Helper()
	rec := doRequest(mux, http.MethodPost, "/api/game/join", user, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var p joinedParticipant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return &p
}

type joinedParticipant struct {
	ID      uuid.UUID `json:"id"`
	RoundID uuid.UUID `json:"round_id"`
}
