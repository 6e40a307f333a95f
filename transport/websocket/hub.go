package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log15 "github.com/inconshreveable/log15/v3"

	"github.com/wricardo/huarongpass/game/engine"
	"github.com/wricardo/huarongpass/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time allowed for one inbound gesture to be applied.
	actionTimeout = 5 * time.Second
)

// Inbound actions
const (
	ActionDrag       = "drag"
	ActionDragEnd    = "drag_end"
	ActionDragCancel = "drag_cancel"
)

// Outbound events
const (
	EventStateUpdate = "state_update"
	EventDrag        = "drag"
	EventMove        = "move"
	EventDragCancel  = "drag_cancel"
	EventError       = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GestureService applies drag gestures received from clients
type GestureService interface {
	Drag(ctx context.Context, sessionID string, req service.DragRequest) (*service.DragResult, error)
	EndDrag(ctx context.Context, sessionID string) (*service.MoveResult, error)
	CancelDrag(ctx context.Context, sessionID string) (*engine.GameState, error)
}

// Message is what the hub sends to clients
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      any               `json:"data,omitempty"`
}

// Action is what clients send to the hub. Drag updates carry the pointer
// displacement since the previous update.
type Action struct {
	Action string  `json:"action"`
	Piece  string  `json:"piece,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub keeps the clients of each session and fans state out to them.
// Session IDs are matched case-insensitively.
type Hub struct {
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	gestures GestureService
	log      log15.Logger

	// Queued events, drained by Run
	broadcast chan *Message
}

// NewHub creates a new WebSocket hub. With a nil GestureService the hub only
// broadcasts and rejects inbound actions.
func NewHub(gestures GestureService) *Hub {
	return &Hub{
		sessions:  make(map[string]map[*Client]bool),
		gestures:  gestures,
		log:       log15.New("module", "websocket"),
		broadcast: make(chan *Message, engine.WebSocketBufferSize),
	}
}

// Run starts the hub's event loop and closes every client when ctx ends
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "session", sessionID, "err", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, engine.WebSocketBufferSize),
		sessionID: sessionID,
	}

	h.registerClient(client)

	go client.writePump()
	go client.readPump()
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.broadcastMessage(&Message{
		SessionID: sessionID,
		GameState: state,
		Event:     EventStateUpdate,
	})
}

// BroadcastEvent queues a custom event for all clients in a session. The
// event is dropped when the queue is full.
func (h *Hub) BroadcastEvent(sessionID string, event string, data any) {
	message := &Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	}

	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("broadcast queue full, dropping event", "session", sessionID, "event", event)
	}
}

// ClientCount returns the number of clients attached to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionKey(sessionID)])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := sessionKey(client.sessionID)
	if h.sessions[key] == nil {
		h.sessions[key] = make(map[*Client]bool)
	}
	h.sessions[key][client] = true

	h.log.Debug("client registered", "session", client.sessionID, "clients", len(h.sessions[key]))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	key := sessionKey(client.sessionID)
	clients, ok := h.sessions[key]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, key)
	}

	h.log.Debug("client unregistered", "session", client.sessionID, "clients", len(clients))
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Warn("failed to marshal broadcast message", "session", message.SessionID, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[sessionKey(message.SessionID)] {
		select {
		case client.send <- data:
		default:
			// Slow reader
			h.removeLocked(client)
		}
	}
}

// reply sends a message to one client if it is still attached
func (h *Hub) reply(client *Client, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Warn("failed to marshal reply", "session", client.sessionID, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sessions[sessionKey(client.sessionID)][client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.removeLocked(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.sessions {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// handleAction applies one inbound action and fans the result out
func (h *Hub) handleAction(client *Client, raw []byte) {
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		h.replyError(client, "", fmt.Errorf("invalid message: %w", err))
		return
	}
	if h.gestures == nil {
		h.replyError(client, action.Action, fmt.Errorf("this connection is read-only"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	message := &Message{SessionID: client.sessionID}
	switch action.Action {
	case ActionDrag:
		result, err := h.gestures.Drag(ctx, client.sessionID, service.DragRequest{
			Piece: action.Piece,
			DX:    action.DX,
			DY:    action.DY,
		})
		if err != nil {
			h.replyError(client, action.Action, err)
			return
		}
		message.Event = EventDrag
		message.GameState = result.GameState
		message.Data = result

	case ActionDragEnd:
		result, err := h.gestures.EndDrag(ctx, client.sessionID)
		if err != nil {
			h.replyError(client, action.Action, err)
			return
		}
		message.Event = EventMove
		message.GameState = result.GameState
		message.Data = result.Move

	case ActionDragCancel:
		state, err := h.gestures.CancelDrag(ctx, client.sessionID)
		if err != nil {
			h.replyError(client, action.Action, err)
			return
		}
		message.Event = EventDragCancel
		message.GameState = state

	default:
		h.replyError(client, action.Action, fmt.Errorf("unknown action %q", action.Action))
		return
	}

	h.broadcastMessage(message)
}

func (h *Hub) replyError(client *Client, action string, err error) {
	h.log.Debug("websocket action rejected", "session", client.sessionID, "action", action, "err", err)
	h.reply(client, &Message{
		SessionID: client.sessionID,
		Event:     EventError,
		Data: map[string]string{
			"action": action,
			"error":  err.Error(),
		},
	})
}

func sessionKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

// readPump pumps actions from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "session", c.sessionID, "err", err)
			}
			break
		}
		c.hub.handleAction(c, data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
