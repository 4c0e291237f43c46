package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeParticipants(t *testing.T) {
	req := require.New(t)

	t.Run("should dedupe, sort and drop empties", func(t *testing.T) {
		got := NormalizeParticipants([]string{"bob", "", "alice", "bob", "carol"})
		req.Equal([]string{"alice", "bob", "carol"}, got)
	})

	t.Run("should produce the same key regardless of input order", func(t *testing.T) {
		a := ParticipantsKey(NormalizeParticipants([]string{"u2", "u1"}))
		b := ParticipantsKey(NormalizeParticipants([]string{"u1", "u2", "u1"}))
		req.Equal(a, b)
		req.Equal("u1,u2", a)
	})
}

func TestChatVisibility(t *testing.T) {
	req := require.New(t)
	c := &Chat{
		Participants: []string{"alice", "bob"},
		ReadBy:       []string{"alice"},
		DeletedBy:    []string{"bob"},
	}

	req.True(c.HasParticipant("alice"))
	req.False(c.HasParticipant("mallory"))
	req.False(c.UnreadFor("alice"))
	req.True(c.UnreadFor("bob"))
	req.True(c.DeletedFor("bob"))
	req.False(c.DeletedFor("alice"))
}
