package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (for development)
	},
}

// WSEventType event type
type WSEventType string

const (
	EventConnected       WSEventType = "connected"
	EventMetadataUpdated WSEventType = "metadata_updated"
)

// WSMessage WebSocket message structure
type WSMessage struct {
	Event WSEventType `json:"event"`
	Data  interface{} `json:"data"`
}

// MetadataUpdate is the payload of EventMetadataUpdated
type MetadataUpdate struct {
	Address    string `json:"address"`
	TypeID     int32  `json:"type_id"`
	MagicHash  string `json:"magic_hash"`
	WriteCount uint64 `json:"write_count"`
}

type broadcastMsg struct {
	address string
	data    []byte
}

// WSHub client connection management
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan broadcastMsg
	register   chan *WSClient
	unregister chan *WSClient
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// WSClient WebSocket client. An empty address receives every update.
type WSClient struct {
	hub     *WSHub
	conn    *websocket.Conn
	send    chan []byte
	address string
}

// NewWSHub creates new Hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		stop:       make(chan struct{}),
	}
}

// Run runs the Hub until Stop
func (h *WSHub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("WebSocket client connected. Total:", h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Debug("WebSocket client disconnected. Total:", h.GetClientCount())

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.address != "" && client.address != message.address {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop terminates Run and closes every client
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// BroadcastUpdate notifies subscribers that address holds a new state
func (h *WSHub) BroadcastUpdate(update MetadataUpdate) {
	data, err := json.Marshal(WSMessage{
		Event: EventMetadataUpdated,
		Data:  update,
	})
	if err != nil {
		logger.Error("Failed to marshal WebSocket message:", err)
		return
	}

	select {
	case h.broadcast <- broadcastMsg{address: update.Address, data: data}:
	default:
		logger.Warn("WebSocket broadcast queue full, dropping update for ", update.Address)
	}
}

// GetClientCount returns connected client count
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket WebSocket connection handler. ?address= limits updates to one address.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error:", err)
			return
		}

		client := &WSClient{
			hub:     hub,
			conn:    conn,
			send:    make(chan []byte, 256),
			address: r.URL.Query().Get("address"),
		}

		// Queue the greeting before registering so it is always the first frame
		welcomeMsg := WSMessage{
			Event: EventConnected,
			Data: map[string]interface{}{
				"message": "Connected to ABCFe metadata store",
				"address": client.address,
			},
		}
		data, _ := json.Marshal(welcomeMsg)
		client.send <- data

		select {
		case hub.register <- client:
		case <-hub.stop:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// writePump sends message to client
func (c *WSClient) writePump() {
	defer func() {
		c.conn.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				logger.Error("WebSocket write error:", err)
			} else {
				logger.Debug("WebSocket write closed:", err)
			}
			return
		}
	}
}

// readPump drains the client until it disconnects
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error:", err)
			} else {
				logger.Debug("WebSocket client disconnected:", err)
			}
			break
		}
	}
}
