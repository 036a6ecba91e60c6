package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of game event on the wire.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeResult EventType = "result"
)

// Event is the envelope published to observers for every game event.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps a marshaled payload in a fresh envelope.
func NewEvent(eventType EventType, data []byte) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// StatusPayload is the `status` event: the observable lobby snapshot.
type StatusPayload struct {
	HasActiveRound   bool       `json:"hasActiveRound"`
	TimeLeft         int        `json:"timeLeft"`
	ParticipantCount int        `json:"participantCount"`
	QueueCount       int        `json:"queueCount"`
	RoundID          *uuid.UUID `json:"roundId,omitempty"`
}

// ResultParticipant describes one active player in a completed round.
type ResultParticipant struct {
	Username     string `json:"username"`
	ChosenNumber *int   `json:"chosenNumber"`
	IsWinner     bool   `json:"isWinner"`
}

// ResultWinner describes one winning player.
type ResultWinner struct {
	Username     string `json:"username"`
	ChosenNumber *int   `json:"chosenNumber"`
}

// ResultPayload is the `result` event published when a round completes.
type ResultPayload struct {
	RoundID       uuid.UUID           `json:"roundId"`
	WinningNumber int                 `json:"winningNumber"`
	Participants  []ResultParticipant `json:"participants"`
	Winners       []ResultWinner      `json:"winners"`
	TotalPlayers  int                 `json:"totalPlayers"`
	TotalWinners  int                 `json:"totalWinners"`
}
