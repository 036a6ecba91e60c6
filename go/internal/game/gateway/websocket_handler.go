package gateway

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// TokenVerifier authenticates an access token into a user id string.
type TokenVerifier interface {
	VerifySubject(token string) (string, error)
}

// WebSocketHandler handles WebSocket upgrade requests for lobby connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	verifier          TokenVerifier
	onConnect         func(conn *Connection)
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, verifier TokenVerifier) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		verifier:          verifier,
	}
}

// OnConnect registers a hook invoked for every new connection.
func (h *WebSocketHandler) OnConnect(fn func(conn *Connection)) {
	h.onConnect = fn
}

// HandleLobbyConnection handles WebSocket connections for the game lobby.
func (h *WebSocketHandler) HandleLobbyConnection(w http.ResponseWriter, r *http.Request) {
	// Spectators are allowed: a missing or invalid token just means an
	// anonymous read-only observer.
	userID := "anonymous"
	if token := r.URL.Query().Get("token"); token != "" && h.verifier != nil {
		sub, err := h.verifier.VerifySubject(token)
		if err != nil {
			log.Warn().Err(err).Msg("rejecting WebSocket token, connecting as anonymous")
		} else {
			userID = sub
		}
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}

	if h.onConnect != nil {
		h.onConnect(conn)
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"total_connections":` + strconv.Itoa(h.connectionManager.ConnectionCount()) + `}`))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/lobby", h.HandleLobbyConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
