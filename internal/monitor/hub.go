package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound message buffer per client.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans extraction progress out to connected websocket clients. A
// slow client gets dropped rather than stalling the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]bool)}
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes v and queues it to every connected client.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[hub] failed to marshal broadcast: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Client buffer full; drop it.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[hub] websocket upgrade failed: %v", err)
		return
	}

	c := &hubClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.New().String(),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	log.Printf("[hub] client %s connected from %s", c.id, r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump drains the connection so control frames are processed; the
// progress stream is one-way.
func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("[hub] client %s read error: %v", c.id, err)
			}
			return
		}
	}
}

// writePump pumps queued messages to the websocket connection.
func (c *hubClient) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
