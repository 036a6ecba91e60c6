package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mcdev12/lucky9/go/internal/game/clock"
	"github.com/mcdev12/lucky9/go/internal/game/events"
	"github.com/mcdev12/lucky9/go/internal/game/round"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// StatusProvider serves fresh snapshots for newly connected clients.
type StatusProvider interface {
	GetStatus(ctx context.Context) (*round.StatusSnapshot, error)
}

// Resumer restarts the suspended driver when observers show up.
type Resumer interface {
	Resume()
}

// Service is the lobby gateway: it accepts WebSocket connections, relays
// published game events to them, and resumes the driver whenever a client
// connects or asks for status.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	statusProvider    StatusProvider
	resumer           Resumer
}

// NewService wires the gateway components together.
func NewService(config ConnectionConfig, nc *nats.Conn, statusProvider StatusProvider, resumer Resumer, verifier TokenVerifier) *Service {
	cm := NewConnectionManager(config)
	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, verifier),
		eventConsumer:     NewEventConsumer(cm, nc),
		statusProvider:    statusProvider,
		resumer:           resumer,
	}

	s.wsHandler.OnConnect(s.handleConnect)
	cm.OnMessage(s.handleClientMessage)
	return s
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting lobby gateway")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("lobby gateway shutting down")
	return nil
}

// RegisterRoutes registers the gateway's HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
}

// handleConnect greets a new client with the current snapshot and makes sure
// the driver is ticking again.
func (s *Service) handleConnect(conn *Connection) {
	s.resumer.Resume()
	s.sendStatus(conn)
}

func (s *Service) handleClientMessage(conn *Connection, msg ClientMessage) {
	switch msg.Type {
	case "requestStatus":
		s.resumer.Resume()
		s.sendStatus(conn)
	default:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("type", msg.Type).
			Msg("ignoring unknown client message")
	}
}

func (s *Service) sendStatus(conn *Connection) {
	status, err := s.statusProvider.GetStatus(context.Background())
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to fetch status for client")
		return
	}

	data, err := json.Marshal(clock.StatusPayload(status))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal status payload")
		return
	}

	conn.SendEvent(events.NewEvent(events.EventTypeStatus, data))
}
