package users

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lucky9/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	tm, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Username: "alice"}
	token, err := tm.Issue(user)
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	subject, err := tm.VerifySubject(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenManager("other-secret", time.Hour)
	require.NoError(t, err)

	token, err := tm.Issue(&models.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	expired := &TokenManager{secret: []byte("test-secret"), ttl: -time.Hour}
	token, err := expired.Issue(&models.User{ID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	tm, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	_, err = tm.Verify(token)
	assert.Error(t, err)
}
