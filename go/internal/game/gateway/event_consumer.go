package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/lucky9/go/internal/game/events"
	"github.com/mcdev12/lucky9/go/internal/game/notify"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// EventConsumer subscribes to the game subjects on core NATS and fans events
// out to connected WebSocket clients. Plain subscriptions, no durable state:
// delivery to observers is at-most-once.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	subs              []*nats.Subscription
}

// NewEventConsumer creates a consumer on an established NATS connection.
func NewEventConsumer(cm *ConnectionManager, nc *nats.Conn) *EventConsumer {
	return &EventConsumer{
		connectionManager: cm,
		nc:                nc,
	}
}

// Start subscribes to the status and result subjects and blocks until the
// context is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	for _, subject := range []string{notify.SubjectStatus, notify.SubjectResult} {
		sub, err := ec.nc.Subscribe(subject, ec.handleMessage)
		if err != nil {
			ec.drain()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		ec.subs = append(ec.subs, sub)
		log.Info().Str("subject", subject).Msg("subscribed to game events")
	}

	<-ctx.Done()
	ec.drain()
	return nil
}

func (ec *EventConsumer) handleMessage(msg *nats.Msg) {
	var event events.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to unmarshal game event")
		return
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Msg("relaying game event")

	ec.connectionManager.Broadcast(event)
}

func (ec *EventConsumer) drain() {
	for _, sub := range ec.subs {
		_ = sub.Unsubscribe()
	}
	ec.subs = nil
}
