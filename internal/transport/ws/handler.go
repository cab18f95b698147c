package ws

import (
	"context"
	"net/http"
	"time"

	"plantdoc/internal/auth"
	"plantdoc/internal/model"
	"plantdoc/internal/service"
	"plantdoc/internal/wizard"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the token gates access
	},
}

// Viewer returns the current wizard view of a caller
type Viewer interface {
	View(ctx context.Context, c service.Caller) wizard.View
}

// Handler handles WebSocket connections
type Handler struct {
	hub    *Hub
	auth   *auth.Authenticator
	viewer Viewer
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authn *auth.Authenticator, viewer Viewer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:    hub,
		auth:   authn,
		viewer: viewer,
		logger: logger,
	}
}

// AssessmentWS handles GET /v1/ws/assessment?token=
func (h *Handler) AssessmentWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	ac := h.auth.Context(token)
	decision := auth.Guard(auth.RouteRequirements{
		Protected:    true,
		AllowedRoles: []model.Role{model.RoleUser, model.RoleAdmin},
	}, ac)
	if !decision.Allow {
		status := http.StatusForbidden
		if !ac.TokenValid {
			status = http.StatusUnauthorized
		}
		http.Error(w, decision.String(), status)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(ac.UserID)
	if h.viewer != nil {
		caller := service.Caller{UserID: ac.UserID, Header: http.Header{"Authorization": {"Bearer " + token}}}
		if data, err := encode(MsgStateChanged, h.viewer.View(r.Context(), caller)); err == nil {
			conn.Send <- data
		}
	}
	if !h.hub.Register(conn) {
		wsConn.Close()
		return
	}

	h.logger.Info("assessment feed connected", zap.String("userId", ac.UserID))

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("userId", conn.UserID), zap.Error(err))
			}
			return
		}
		// the feed is one-way; intents go through REST
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
