package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundState defines the lifecycle state of a game round.
type RoundState string

const (
	RoundStateOpen      RoundState = "OPEN"
	RoundStateCompleted RoundState = "COMPLETED"
	// RoundStateDiscarded is terminal but never persisted: a round that
	// expires with no active participants is deleted outright.
	RoundStateDiscarded RoundState = "DISCARDED"
)

// Round represents one timed instance of the number-picking game.
// At most one round is in the OPEN state at any instant.
type Round struct {
	ID            uuid.UUID  `json:"id"`
	State         RoundState `json:"state"`
	WinningNumber *int       `json:"winning_number,omitempty"`
	StartedBy     uuid.UUID  `json:"started_by"`
	EndsAt        time.Time  `json:"ends_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Ended reports whether the round deadline has passed at the given instant.
func (r *Round) Ended(now time.Time) bool {
	return now.After(r.EndsAt)
}
