package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered player.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
