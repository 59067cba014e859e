package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is a progress event pushed to wizard clients.
type Message struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Event types published during onboarding.
const (
	TypeAnalysisStarted       = "analysis_started"
	TypeAnalysisCompleted     = "analysis_completed"
	TypeAnalysisFailed        = "analysis_failed"
	TypeIntegrationConnecting = "integration_connecting"
	TypeIntegrationConnected  = "integration_connected"
	TypeIntegrationError      = "integration_error"
	TypeIntegrationAbandoned  = "integration_abandoned"
	TypeDeployStarted         = "deploy_started"
	TypeDeployCompleted       = "deploy_completed"
	TypeDeployFailed          = "deploy_failed"
)

// Publisher pushes progress messages to a session's subscribers.
type Publisher interface {
	Publish(sessionID string, msg Message)
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub routes progress messages to WebSocket connections grouped by session.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*connection]bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	closed      bool
}

type connection struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan Message
}

// NewHub creates a hub. Upgrade requests are accepted only from the given
// origins; an empty list allows same-origin requests only.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Hub{
		connections: make(map[string]map[*connection]bool),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return allowed[origin]
			},
		},
	}
}

// Subscribe upgrades the request and attaches the client to a session's
// progress stream.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, sessionID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &connection{
		id:        uuid.New().String(),
		sessionID: sessionID,
		conn:      ws,
		send:      make(chan Message, 64),
	}

	h.mu.Lock()
	if h.connections[sessionID] == nil {
		h.connections[sessionID] = make(map[*connection]bool)
	}
	h.connections[sessionID][c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)

	h.logger.Debug("Progress subscriber attached",
		zap.String("session_id", sessionID),
		zap.String("connection_id", c.id))

	return nil
}

// Publish sends a message to every subscriber of the session. Slow
// subscribers are dropped rather than blocking the caller.
func (h *Hub) Publish(sessionID string, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.SessionID = sessionID

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections[sessionID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("Dropping slow progress subscriber",
				zap.String("session_id", sessionID),
				zap.String("connection_id", c.id))
			go h.detach(c)
		}
	}
}

func (h *Hub) detach(c *connection) {
	h.mu.Lock()
	if conns, ok := h.connections[c.sessionID]; ok {
		if conns[c] {
			delete(conns, c)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.connections, c.sessionID)
		}
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) readPump(c *connection) {
	defer h.detach(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only listen; any read error means the peer went away.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close terminates every subscriber connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sessionID, conns := range h.connections {
		for c := range conns {
			close(c.send)
			c.conn.Close()
		}
		delete(h.connections, sessionID)
	}
}

// NopPublisher discards all messages. Used in tests and workers.
type NopPublisher struct{}

func (NopPublisher) Publish(sessionID string, msg Message) {}
