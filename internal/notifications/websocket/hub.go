// Package websocket pushes in-app notifications to connected portal
// clients over gorilla/websocket. Connections are keyed by user ID and
// carry the user's roles, so workflow notifications addressed to a role
// reach everyone currently signed in with it.
package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Frame is what goes over the wire to a client.
type Frame struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Connection is one client socket.
type Connection struct {
	ID     string
	UserID string
	Roles  []string
	conn   *websocket.Conn
	send   chan Frame
}

// Hub tracks live connections and routes frames to them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Connect upgrades the request and starts the read/write pumps. The
// caller supplies the authenticated identity; the hub never trusts
// anything in the request for it.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request, userID string, roles []string) (*Connection, error) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		Roles:  roles,
		conn:   ws,
		send:   make(chan Frame, sendBuffer),
	}

	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	h.logger.Debug("websocket connected", zap.String("connection_id", conn.ID), zap.String("user_id", userID))

	go h.writePump(conn)
	go h.readPump(conn)

	conn.send <- Frame{
		Type:      "status",
		Data:      map[string]any{"status": "connected", "connection_id": conn.ID},
		Timestamp: time.Now(),
	}
	return conn, nil
}

// readPump drains the socket so pongs are processed; clients have
// nothing meaningful to send.
func (h *Hub) readPump(conn *Connection) {
	defer h.drop(conn)

	conn.conn.SetReadLimit(512)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(conn *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; ok {
		delete(h.connections, conn.ID)
		close(conn.send)
	}
	h.mu.Unlock()
	conn.conn.Close()
}

// SendToUser delivers a frame to every connection the user holds.
// Returns the number of connections reached.
func (h *Hub) SendToUser(userID string, frame Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, conn := range h.connections {
		if conn.UserID != userID {
			continue
		}
		select {
		case conn.send <- frame:
			sent++
		default:
		}
	}
	return sent
}

// SendToRole delivers a frame to every connected user holding the role.
func (h *Hub) SendToRole(role string, frame Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, conn := range h.connections {
		for _, r := range conn.Roles {
			if r == role {
				select {
				case conn.send <- frame:
					sent++
				default:
				}
				break
			}
		}
	}
	return sent
}

// Broadcast delivers a frame to every live connection.
func (h *Hub) Broadcast(frame Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, conn := range h.connections {
		select {
		case conn.send <- frame:
			sent++
		default:
		}
	}
	return sent
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close tears down every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.send)
		conn.conn.Close()
		delete(h.connections, id)
	}
}
