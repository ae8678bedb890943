package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []Event {
	events := []Event{}
	for {
		select {
		case raw := <-c.send:
			var e Event
			if json.Unmarshal(raw, &e) == nil {
				events = append(events, e)
			}
		default:
			return events
		}
	}
}

func TestHub(t *testing.T) {
	t.Run("EmitReachesAllMembers", func(t *testing.T) {
		h := NewHub(nil)
		c1 := newTestClient(h)
		c2 := newTestClient(h)
		h.Register(c1)
		h.Register(c2)
		h.Join(c1, ChatChannel("s1"))
		h.Join(c2, ChatChannel("s1"))

		h.EmitToChannel(ChatChannel("s1"), "new-message", map[string]string{"chatId": "s1"})

		for _, c := range []*Client{c1, c2} {
			events := drain(c)
			require.Len(t, events, 1)
			assert.Equal(t, "new-message", events[0].Event)
		}
	})

	t.Run("EmitTargetsOnlyNamedChannel", func(t *testing.T) {
		h := NewHub(nil)
		user := newTestClient(h)
		agent := newTestClient(h)
		h.Register(user)
		h.Register(agent)
		h.Join(user, UserChannel("U1"))
		h.Join(agent, AgentChannel("A1"))

		h.EmitToChannel(AgentChannel("A1"), "new-message", nil)

		assert.Empty(t, drain(user))
		assert.Len(t, drain(agent), 1)
	})

	t.Run("EmptyChannelDropsSilently", func(t *testing.T) {
		h := NewHub(nil)
		h.EmitToChannel(ChatChannel("ghost"), "new-message", nil)
		assert.Equal(t, 0, h.Members(ChatChannel("ghost")))
	})

	t.Run("RejoinIsNoop", func(t *testing.T) {
		h := NewHub(nil)
		c := newTestClient(h)
		h.Register(c)
		h.Join(c, ChatChannel("s1"))
		h.Join(c, ChatChannel("s1"))

		assert.Equal(t, 1, h.Members(ChatChannel("s1")))

		h.EmitToChannel(ChatChannel("s1"), "new-message", nil)
		assert.Len(t, drain(c), 1, "member must receive the event once")
	})

	t.Run("ClientMayJoinManyChannels", func(t *testing.T) {
		h := NewHub(nil)
		c := newTestClient(h)
		h.Register(c)
		h.Join(c, UserChannel("U1"))
		h.Join(c, ChatChannel("s1"))
		h.Join(c, ChatChannel("s2"))

		h.EmitToChannel(UserChannel("U1"), "new-message", nil)
		h.EmitToChannel(ChatChannel("s1"), "new-message", nil)
		h.EmitToChannel(ChatChannel("s2"), "new-message", nil)

		assert.Len(t, drain(c), 3)
	})

	t.Run("UnregisterRemovesAllMemberships", func(t *testing.T) {
		h := NewHub(nil)
		c := newTestClient(h)
		h.Register(c)
		h.Join(c, UserChannel("U1"))
		h.Join(c, ChatChannel("s1"))

		h.Unregister(c)

		assert.Equal(t, 0, h.Members(UserChannel("U1")))
		assert.Equal(t, 0, h.Members(ChatChannel("s1")))

		h.EmitToChannel(ChatChannel("s1"), "new-message", nil)
		assert.Empty(t, drain(c))
	})

	t.Run("JoinAfterDisconnectIsIgnored", func(t *testing.T) {
		h := NewHub(nil)
		c := newTestClient(h)
		h.Register(c)
		h.Unregister(c)

		h.Join(c, ChatChannel("s1"))
		assert.Equal(t, 0, h.Members(ChatChannel("s1")))
	})

	t.Run("TypingRoutesToRecipientOnly", func(t *testing.T) {
		h := NewHub(nil)
		user := newTestClient(h)
		agent := newTestClient(h)
		h.Register(user)
		h.Register(agent)
		h.Join(user, UserChannel("U1"))
		h.Join(agent, AgentChannel("A1"))

		h.EmitTyping("s1", true, "agent", "A1")

		assert.Empty(t, drain(user))
		events := drain(agent)
		require.Len(t, events, 1)
		assert.Equal(t, "agent-typing", events[0].Event)

		h.EmitTyping("s1", false, "user", "U1")
		events = drain(user)
		require.Len(t, events, 1)
		assert.Equal(t, "user-typing", events[0].Event)
	})
}
