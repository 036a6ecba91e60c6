package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/lucky9/go/internal/game/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestGateway(t *testing.T) (*ConnectionManager, *WebSocketHandler, *httptest.Server) {
	t.Helper()

	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	handler := NewWebSocketHandler(cm, nil)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return cm, handler, srv
}

func dialLobby(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/lobby"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event events.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestBroadcastReachesConnectedClients(t *testing.T) {
	cm, _, srv := startTestGateway(t)

	first := dialLobby(t, srv)
	second := dialLobby(t, srv)

	require.Eventually(t, func() bool { return cm.ConnectionCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(events.StatusPayload{HasActiveRound: true, TimeLeft: 12})
	require.NoError(t, err)
	cm.Broadcast(events.NewEvent(events.EventTypeStatus, payload))

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, events.EventTypeStatus, event.Type)

		var status events.StatusPayload
		require.NoError(t, json.Unmarshal(event.Data, &status))
		assert.True(t, status.HasActiveRound)
		assert.Equal(t, 12, status.TimeLeft)
	}
}

func TestClientMessageDispatchesToHandler(t *testing.T) {
	cm, _, srv := startTestGateway(t)

	received := make(chan ClientMessage, 1)
	cm.OnMessage(func(conn *Connection, msg ClientMessage) {
		received <- msg
	})

	conn := dialLobby(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"requestStatus"}`)))

	select {
	case msg := <-received:
		assert.Equal(t, "requestStatus", msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
	}
}

func TestConnectionStatsEndpoint(t *testing.T) {
	cm, _, srv := startTestGateway(t)

	dialLobby(t, srv)
	require.Eventually(t, func() bool { return cm.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats struct {
		TotalConnections int `json:"total_connections"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
}

func TestTrySendAfterUnregisterReportsFalse(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := &Connection{ID: "c1", Send: make(chan []byte, 1), Manager: cm}
	cm.registerConnection(conn)

	cm.unregisterConnection(conn)
	assert.False(t, conn.TrySend([]byte(`{}`)))

	// Unregistering again must not close Send a second time.
	cm.unregisterConnection(conn)
}

func TestTrySendRacesWithUnregister(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := &Connection{ID: "c1", Send: make(chan []byte), Manager: cm}
	cm.registerConnection(conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			conn.TrySend([]byte(`{}`))
		}
	}()

	cm.unregisterConnection(conn)
	<-done
	assert.Zero(t, cm.ConnectionCount())
}
