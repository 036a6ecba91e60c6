package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a membership record owned by exactly one round.
// A queued participant does not count toward capacity and may not
// choose a number until it is promoted.
type Participant struct {
	ID           uuid.UUID `json:"id"`
	RoundID      uuid.UUID `json:"round_id"`
	UserID       uuid.UUID `json:"user_id"`
	ChosenNumber *int      `json:"chosen_number,omitempty"`
	IsInQueue    bool      `json:"is_in_queue"`
	IsWinner     bool      `json:"is_winner"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Active reports whether the participant holds an active (non-queued) slot.
func (p *Participant) Active() bool {
	return !p.IsInQueue
}
