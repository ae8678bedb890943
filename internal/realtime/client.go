package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/transitdesk/transitdesk/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one websocket connection. A connection may act for a
// requester or an agent; it declares itself by joining its personal
// channel.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewClient wraps an upgraded websocket connection. The caller must
// invoke Run to start the pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// newTestClient builds a hub-only client for unit tests.
func newTestClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// inbound is the envelope for client->server events.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	UserID  string `json:"userId"`
	AgentID string `json:"agentId"`
	ChatID  string `json:"chatId"`
}

type typingPayload struct {
	ChatID        string `json:"chatId"`
	IsTyping      bool   `json:"isTyping"`
	RecipientType string `json:"recipientType"`
	RecipientID   string `json:"recipientId"`
}

// Run registers the client and drives the read and write pumps. It
// returns when the connection drops; memberships are gone by then.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("read error: %v", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Printf("ignoring malformed event: %v", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Event {
	case "join-user":
		var p joinPayload
		if json.Unmarshal(msg.Data, &p) == nil && p.UserID != "" {
			c.hub.Join(c, UserChannel(p.UserID))
		}
	case "join-agent":
		var p joinPayload
		if json.Unmarshal(msg.Data, &p) == nil && p.AgentID != "" {
			c.hub.Join(c, AgentChannel(p.AgentID))
		}
	case "join-chat":
		var p joinPayload
		if json.Unmarshal(msg.Data, &p) == nil && p.ChatID != "" {
			c.hub.Join(c, ChatChannel(p.ChatID))
		}
	case "typing":
		var p typingPayload
		if json.Unmarshal(msg.Data, &p) == nil {
			c.hub.EmitTyping(p.ChatID, p.IsTyping, p.RecipientType, p.RecipientID)
		}
	default:
		c.hub.logger.Printf("unknown client event %q", msg.Event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// EmitTyping routes a transient typing signal to the recipient's personal
// channel. Never persisted, never replayed.
func (h *Hub) EmitTyping(chatID string, isTyping bool, recipientType, recipientID string) {
	payload := map[string]interface{}{"chatId": chatID, "isTyping": isTyping}
	switch recipientType {
	case models.SenderUser:
		h.EmitToChannel(UserChannel(recipientID), "user-typing", payload)
	case models.SenderAgent:
		h.EmitToChannel(AgentChannel(recipientID), "agent-typing", payload)
	}
}
