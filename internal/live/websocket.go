package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/pregamehq/discovery-server/internal/discovery"
)

const writeTimeout = 10 * time.Second

// SessionReader is the subset of the orchestrator the handler needs.
type SessionReader interface {
	Status(sessionID string) (*discovery.Snapshot, error)
}

// WebSocketHandler streams discovery session updates to dashboard clients.
type WebSocketHandler struct {
	hub      *Hub
	sessions SessionReader
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, sessions SessionReader) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, sessions: sessions}
}

// ServeHTTP upgrades the connection and streams snapshots until the session
// reaches a terminal stage or the client goes away.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// Reject unknown sessions before upgrading.
	if _, err := h.sessions.Status(sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	updates, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	ctx := r.Context()

	// Read the current state only after subscribing. A session that went
	// terminal between the pre-upgrade check and Subscribe would otherwise
	// never be seen: its final Notify fired with no subscribers, and no
	// further updates will arrive.
	snapshot, err := h.sessions.Status(sessionID)
	if err != nil {
		return
	}
	if err := h.writeSnapshot(ctx, ws, snapshot); err != nil {
		return
	}
	if snapshot.Stage.Terminal() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-updates:
			if err := h.writeSnapshot(ctx, ws, snapshot); err != nil {
				slog.Debug("live update write failed", "session_id", sessionID, "error", err)
				return
			}
			if snapshot.Stage.Terminal() {
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeSnapshot(ctx context.Context, ws *websocket.Conn, snapshot *discovery.Snapshot) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, ws, snapshot)
}
