package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/graydb/internal/auth"
	"github.com/nerrad567/graydb/internal/database"
)

// Message types exchanged over /api/v1/ws.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const wsSendBufferSize = 256

// WSMessage is the envelope of every frame sent to a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe requests.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsRequest is an inbound frame; the payload is decoded per type.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// WSClient is one authenticated WebSocket connection.
type WSClient struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string
	role    auth.Role

	// send is closed by shutdown; closed guards enqueue against that.
	mu     sync.RWMutex
	send   chan []byte
	closed bool

	subMu      sync.RWMutex
	all        bool
	categories map[database.Category]struct{}
}

func newWSClient(hub *Hub, conn *websocket.Conn, subject string, role auth.Role) *WSClient {
	return &WSClient{
		hub:        hub,
		conn:       conn,
		subject:    subject,
		role:       role,
		send:       make(chan []byte, wsSendBufferSize),
		categories: make(map[database.Category]struct{}),
	}
}

// handleWebSocket upgrades a request carrying a ticket from POST
// /auth/ws-ticket. The ticket's role decides whether events keep their params.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.redeem(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err, "subject", entry.subject)
		return
	}

	client := newWSClient(s.hub, conn, entry.subject, entry.role)
	s.hub.Register(client)
	go client.writeLoop()
	go client.readLoop()
}

// keepalive returns the ping period and the read deadline extension.
func (c *WSClient) keepalive() (ping, idle time.Duration) {
	ping = time.Duration(c.hub.cfg.PingInterval) * time.Second
	pong := time.Duration(c.hub.cfg.PongTimeout) * time.Second
	return ping, ping + pong
}

func (c *WSClient) readLoop() {
	defer c.hub.Unregister(c)

	_, idle := c.keepalive()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "subject", c.subject, "error", err)
			}
			return
		}
		extend() //nolint:errcheck // see above
		c.dispatch(data)
	}
}

// writeLoop owns all writes to conn and closes it when send is closed.
func (c *WSClient) writeLoop() {
	ping, _ := c.keepalive()
	writeWait := time.Duration(c.hub.cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write reports it
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "")) //nolint:errcheck // closing anyway
				return
			}
			if err := write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues frame without blocking. It reports false if the client is
// gone or its buffer is full.
func (c *WSClient) enqueue(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes send once, which makes writeLoop send a close frame.
func (c *WSClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) wants(cat database.Category) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if c.all {
		return true
	}
	_, ok := c.categories[cat]
	return ok
}

// setSubscriptions applies every channel or none of them.
func (c *WSClient) setSubscriptions(channels []string, on bool) error {
	type target struct {
		cat database.Category
		all bool
	}
	targets := make([]target, 0, len(channels))
	for _, ch := range channels {
		cat, all, err := parseChannel(ch)
		if err != nil {
			return err
		}
		targets = append(targets, target{cat, all})
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, t := range targets {
		switch {
		case t.all:
			c.all = on
		case on:
			c.categories[t.cat] = struct{}{}
		default:
			delete(c.categories, t.cat)
		}
	}
	return nil
}

func (c *WSClient) dispatch(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorBody("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		on := req.Type == WSTypeSubscribe
		var sub WSSubscribePayload
		if err := json.Unmarshal(req.Payload, &sub); err != nil || len(sub.Channels) == 0 {
			c.reply(req.ID, WSTypeError, errorBody("payload must list channels"))
			return
		}
		if err := c.setSubscriptions(sub.Channels, on); err != nil {
			c.reply(req.ID, WSTypeError, errorBody(err.Error()))
			return
		}
		key := "unsubscribed"
		if on {
			key = "subscribed"
		}
		c.hub.logger.Debug("websocket subscriptions changed", "subject", c.subject, key, sub.Channels)
		c.reply(req.ID, WSTypeResponse, map[string][]string{key: sub.Channels})
	default:
		c.reply(req.ID, WSTypeError, errorBody("unknown message type: "+req.Type))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"message": msg}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}
