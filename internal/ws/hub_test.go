package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(buffer int) *Client {
	return &Client{send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case b := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(b, &env))
		return env
	default:
		t.Fatal("no frame queued")
		return Envelope{}
	}
}

func TestHubEmitToUser(t *testing.T) {
	t.Run("should deliver to every connection in the room", func(t *testing.T) {
		req := require.New(t)
		h := NewHub(zap.NewNop())
		phone, laptop := testClient(4), testClient(4)
		h.Subscribe("alice", phone)
		h.Subscribe("alice", laptop)

		h.EmitToUser("alice", "NEW_MESSAGE", map[string]string{"id": "m1"})

		for _, c := range []*Client{phone, laptop} {
			env := receive(t, c)
			req.Equal("NEW_MESSAGE", env.Type)
		}
	})

	t.Run("should drop the event when the room is empty", func(t *testing.T) {
		h := NewHub(zap.NewNop())
		c := testClient(4)
		h.Subscribe("alice", c)

		h.EmitToUser("nobody", "NEW_MESSAGE", nil)

		require.Empty(t, c.send)
	})

	t.Run("should not reach other users' rooms", func(t *testing.T) {
		h := NewHub(zap.NewNop())
		alice, bob := testClient(4), testClient(4)
		h.Subscribe("alice", alice)
		h.Subscribe("bob", bob)

		h.EmitToUser("alice", "NEW_MESSAGE", nil)

		require.Len(t, alice.send, 1)
		require.Empty(t, bob.send)
	})

	t.Run("should drop frames for a slow client instead of blocking", func(t *testing.T) {
		req := require.New(t)
		h := NewHub(zap.NewNop())
		c := testClient(1)
		h.Subscribe("alice", c)

		h.EmitToUser("alice", "NEW_MESSAGE", nil)
		h.EmitToUser("alice", "NEW_MESSAGE", nil) // buffer full, dropped

		req.Len(c.send, 1)
	})
}

func TestHubEmitToAll(t *testing.T) {
	req := require.New(t)
	h := NewHub(zap.NewNop())
	alice, bob := testClient(4), testClient(4)
	h.Subscribe("alice", alice)
	h.Subscribe("bob", bob)

	h.EmitToAll("ANNOUNCEMENT", "maintenance")

	req.Len(alice.send, 1)
	req.Len(bob.send, 1)
}

func TestHubUnsubscribe(t *testing.T) {
	req := require.New(t)
	h := NewHub(zap.NewNop())
	c := testClient(4)
	h.Subscribe("alice", c)
	req.Equal(1, h.ConnectionsFor("alice"))

	h.Unsubscribe(c)
	req.Zero(h.ConnectionsFor("alice"))

	h.EmitToUser("alice", "NEW_MESSAGE", nil)
	req.Empty(c.send)
}

func TestHubUnsubscribeUnknownClient(t *testing.T) {
	h := NewHub(zap.NewNop())
	// a connection that never passed verification has no room
	h.Unsubscribe(testClient(1))
}
