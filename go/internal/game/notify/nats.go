package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/lucky9/go/internal/game/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Subjects the notifier publishes game events on.
const (
	SubjectStatus = "game.status"
	SubjectResult = "game.result"
)

// Notifier is the push sink the driver and round manager publish through.
// Delivery is best-effort, at-most-once: a failed publish is the observer's
// loss, never the round's.
type Notifier interface {
	PublishStatus(ctx context.Context, payload events.StatusPayload) error
	PublishResult(ctx context.Context, payload events.ResultPayload) error
}

// Connect dials NATS with reconnect handling.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSNotifier publishes game events on core NATS subjects. Plain publish,
// no JetStream: observers that are away simply miss events and refetch
// status when they return.
type NATSNotifier struct {
	nc *nats.Conn
}

func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

var _ Notifier = (*NATSNotifier)(nil)

func (n *NATSNotifier) PublishStatus(ctx context.Context, payload events.StatusPayload) error {
	return n.publish(SubjectStatus, events.EventTypeStatus, payload)
}

func (n *NATSNotifier) PublishResult(ctx context.Context, payload events.ResultPayload) error {
	return n.publish(SubjectResult, events.EventTypeResult, payload)
}

func (n *NATSNotifier) publish(subject string, eventType events.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := events.NewEvent(eventType, data)
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if err := n.nc.Publish(subject, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID).
		Msg("published game event")
	return nil
}

// LogNotifier logs events instead of publishing them; used by tools and tests.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func (LogNotifier) PublishStatus(ctx context.Context, payload events.StatusPayload) error {
	log.Info().
		Bool("has_active_round", payload.HasActiveRound).
		Int("time_left", payload.TimeLeft).
		Int("participants", payload.ParticipantCount).
		Msg("status event")
	return nil
}

func (LogNotifier) PublishResult(ctx context.Context, payload events.ResultPayload) error {
	log.Info().
		Str("round_id", payload.RoundID.String()).
		Int("winning_number", payload.WinningNumber).
		Int("total_winners", payload.TotalWinners).
		Msg("result event")
	return nil
}
