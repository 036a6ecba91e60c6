package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/lucky9/go/internal/models"
	"github.com/rs/zerolog/log"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// App handles users business logic
type App struct {
	repo   UsersRepository
	tokens *TokenManager
}

// NewApp creates a new users App
func NewApp(repo UsersRepository, tokens *TokenManager) *App {
	return &App{
		repo:   repo,
		tokens: tokens,
	}
}

// Register creates a user and issues an access token. Usernames are
// username-only credentials, mirroring the lobby's casual sign-up flow.
func (a *App) Register(ctx context.Context, username string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	existing, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	user, err := a.repo.CreateUser(ctx, CreateUserRequest{
		ID:       uuid.New(),
		Username: username,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("registered user")
	return a.issue(user)
}

// Login issues a fresh token for an existing username.
func (a *App) Login(ctx context.Context, username string) (*AuthResponse, error) {
	user, err := a.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return a.issue(user)
}

// ValidateUser resolves an authenticated user id to its record.
func (a *App) ValidateUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

func (a *App) issue(user *models.User) (*AuthResponse, error) {
	token, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{AccessToken: token, User: user}, nil
}
