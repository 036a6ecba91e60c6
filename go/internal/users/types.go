package users

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/lucky9/go/internal/models"
)

// CreateUserRequest represents the data needed to create a new user
type CreateUserRequest struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username" validate:"required"`
}

// AuthResponse carries a signed access token and its user.
type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

var (
	// ErrUsernameTaken is returned by Register for duplicate usernames.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned by Login for unknown usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
