// Package realtime maintains persistent websocket connections and routes
// events to logical channels. Three channel namespaces exist: one per
// requester ("user:<id>"), one per agent ("agent:<id>") and one per chat
// session ("chat:<id>"). Membership lives only as long as the connection;
// the durable message log is the source of truth for anything missed
// while disconnected.
package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/transitdesk/transitdesk/internal/metrics"
)

// Channel name constructors. Namespaces are disjoint by prefix.
func UserChannel(userID string) string { return "user:" + userID }

func AgentChannel(agentID string) string { return "agent:" + agentID }

func ChatChannel(sessionID string) string { return "chat:" + sessionID }

// Event is the wire envelope for server->client pushes.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub owns the channel membership tables. Writes come only from a
// connection's own join/leave/disconnect; emits are read-heavy.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
	logger   *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[REALTIME] ", log.LstdFlags)
	}
	return &Hub{
		channels: make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
		logger:   logger,
	}
}

// Register adds a connected client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.byClient[c] = make(map[string]struct{})
	h.mu.Unlock()
	metrics.Chat().Connections.Inc()
}

// Unregister drops the client and all its channel memberships. Session
// and agent state are untouched: a dropped connection does not close a
// chat or take an agent offline.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	joined, ok := h.byClient[c]
	if ok {
		for name := range joined {
			if members, exists := h.channels[name]; exists {
				delete(members, c)
				if len(members) == 0 {
					delete(h.channels, name)
				}
			}
		}
		delete(h.byClient, c)
	}
	h.mu.Unlock()
	if ok {
		metrics.Chat().Connections.Dec()
	}
}

// Join adds the client to a channel. Rejoining is a no-op; there is no
// limit on channels per connection.
func (h *Hub) Join(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	joined, ok := h.byClient[c]
	if !ok {
		// Not registered (already disconnected); ignore.
		return
	}
	members, exists := h.channels[channel]
	if !exists {
		members = make(map[*Client]struct{})
		h.channels[channel] = members
	}
	members[c] = struct{}{}
	joined[channel] = struct{}{}
}

// EmitToChannel delivers the event to every current member of the
// channel. Delivery is best effort: an empty channel drops the event
// silently, and a member whose send buffer is full misses it.
func (h *Hub) EmitToChannel(channel, event string, payload interface{}) {
	raw, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		h.logger.Printf("drop %s on %s: marshal failed: %v", event, channel, err)
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.channels[channel]))
	for c := range h.channels[channel] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case c.send <- raw:
		default:
			// Slow consumer; the durable log covers what it missed.
		}
	}
}

// Members returns the current member count of a channel.
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
