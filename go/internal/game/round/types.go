package round

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lucky9/go/internal/models"
)

// Config holds the injected game settings for the round engine.
type Config struct {
	Duration   time.Duration
	MaxPlayers int
}

// DefaultConfig returns the reference game settings.
func DefaultConfig() Config {
	return Config{
		Duration:   20 * time.Second,
		MaxPlayers: 10,
	}
}

// CreateRoundRequest represents a request to create a new open round
type CreateRoundRequest struct {
	ID        uuid.UUID `json:"id"`
	StartedBy uuid.UUID `json:"started_by"`
	EndsAt    time.Time `json:"ends_at"`
}

// CreateParticipantRequest represents a request to insert a round member
type CreateParticipantRequest struct {
	ID      uuid.UUID `json:"id"`
	RoundID uuid.UUID `json:"round_id"`
	UserID  uuid.UUID `json:"user_id"`
	InQueue bool      `json:"in_queue"`
}

// ParticipantEntry is a participant joined with its user's username.
type ParticipantEntry struct {
	models.Participant
	Username string `json:"username"`
}

// StatusSnapshot is the read-only view of the current round state.
// Round carries the full record so the driver does not re-read it.
type StatusSnapshot struct {
	HasActiveRound   bool
	TimeLeft         int
	ParticipantCount int
	QueueCount       int
	Round            *models.Round
}

// RoundResult is the outcome of completing a round with active participants.
type RoundResult struct {
	RoundID       uuid.UUID
	WinningNumber int
	Participants  []ParticipantEntry
	Winners       []ParticipantEntry
	TotalPlayers  int
	TotalWinners  int
}

// UserResult pairs a completed round with the caller's participant record.
type UserResult struct {
	Round       models.Round       `json:"round"`
	Participant models.Participant `json:"participant"`
}
