package services

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bloodlink-backend/shared/config"
)

// RequestEvent is pushed to connected dashboard clients on every request
// state transition. Dashboards derive their read models from these events
// plus the stores; the hub is never a source of truth.
type RequestEvent struct {
	Action    string    `json:"action"`
	RequestID uuid.UUID `json:"request_id"`
	OldState  string    `json:"old_state"`
	NewState  string    `json:"new_state"`
	At        time.Time `json:"at"`
}

// EventHub fans request lifecycle events out to WebSocket subscribers.
type EventHub struct {
	clients    map[string]*websocket.Conn // userID -> connection
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	register   chan *clientConnection
	unregister chan *clientConnection
	broadcast  chan *RequestEvent
}

type clientConnection struct {
	UserID     string
	Connection *websocket.Conn
}

var hub *EventHub
var hubOnce sync.Once

// GetEventHub returns the singleton event hub
func GetEventHub() *EventHub {
	hubOnce.Do(func() {
		hub = &EventHub{
			clients: make(map[string]*websocket.Conn),
			upgrader: websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool {
					origin := r.Header.Get("Origin")
					if origin == config.GetConfig().FrontendURL {
						return true
					}
					log.Printf("🚫 WebSocket connection rejected from origin: %s", origin)
					return false
				},
			},
			register:   make(chan *clientConnection, 100),
			unregister: make(chan *clientConnection, 100),
			broadcast:  make(chan *RequestEvent, 1000),
		}
		go hub.run()
	})
	return hub
}

func (h *EventHub) run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *EventHub) registerClient(client *clientConnection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	// Close existing connection if any
	if existing, exists := h.clients[client.UserID]; exists {
		existing.Close()
	}

	h.clients[client.UserID] = client.Connection
	log.Printf("🔌 Dashboard client connected: %s (Total: %d)", client.UserID, len(h.clients))
}

func (h *EventHub) unregisterClient(client *clientConnection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conn, exists := h.clients[client.UserID]; exists && conn == client.Connection {
		conn.Close()
		delete(h.clients, client.UserID)
		log.Printf("🔌 Dashboard client disconnected: %s (Total: %d)", client.UserID, len(h.clients))
	}
}

func (h *EventHub) broadcastEvent(event *RequestEvent) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for userID, conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("⚠️ Failed to push event to %s: %v", userID, err)
		}
	}
}

// Publish queues an event for broadcast. Safe to call on a nil hub, which
// tests use to run the engine without websocket plumbing.
func (h *EventHub) Publish(event RequestEvent) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- &event:
	default:
		log.Println("⚠️ Event hub broadcast buffer full, dropping event")
	}
}

// HandleConnection upgrades the HTTP request and subscribes the caller.
func (h *EventHub) HandleConnection(ctx *gin.Context, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}

	client := &clientConnection{UserID: userID.String(), Connection: conn}
	h.register <- client

	// Reader loop only detects disconnects; clients never send commands.
	go func() {
		defer func() { h.unregister <- client }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
