package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lucky9/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsersRepo struct {
	byID   map[uuid.UUID]*models.User
	byName map[string]*models.User
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byID:   make(map[uuid.UUID]*models.User),
		byName: make(map[string]*models.User),
	}
}

func (f *fakeUsersRepo) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	u := &models.User{ID: req.ID, Username: req.Username, CreatedAt: time.Now()}
	f.byID[u.ID] = u
	f.byName[u.Username] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsersRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return f.byName[username], nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	tm, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	return NewApp(newFakeUsersRepo(), tm)
}

func TestRegisterIssuesToken(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Register(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := app.tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.Subject)
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Register(context.Background(), "alice")
	require.NoError(t, err)

	_, err = app.Register(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterRequiresUsername(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Register(context.Background(), "   ")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Login(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	created, err := app.Register(context.Background(), "alice")
	require.NoError(t, err)

	resp, err := app.Login(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
}
