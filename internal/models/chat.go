package models

import (
	"sort"
	"strings"
	"time"
)

// Chat is a conversation over a fixed participant set. The set is
// frozen at creation; "deleting" a chat only tombstones it for the
// acting user via DeletedBy.
type Chat struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	IsGroup      bool      `bson:"is_group" json:"is_group"`
	CreatorID    string    `bson:"creator_id" json:"creator_id"`
	Participants []string  `bson:"participants" json:"participants"`
	// ParticipantsKey is the sorted, comma-joined participant set.
	// A unique index on (is_group, participants_key) makes chat
	// creation an atomic insert-or-return-existing.
	ParticipantsKey string    `bson:"participants_key" json:"-"`
	DeletedBy       []string  `bson:"deleted_by" json:"-"`
	ReadBy          []string  `bson:"read_by" json:"read_by"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// NormalizeParticipants dedupes and sorts user ids, dropping empties.
func NormalizeParticipants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ParticipantsKey joins an already-normalized participant set.
func ParticipantsKey(sorted []string) string {
	return strings.Join(sorted, ",")
}

func (c *Chat) HasParticipant(userID string) bool {
	return contains(c.Participants, userID)
}

// UnreadFor reports whether the chat is unread for userID.
func (c *Chat) UnreadFor(userID string) bool {
	return !contains(c.ReadBy, userID)
}

// DeletedFor reports whether userID has tombstoned the chat.
func (c *Chat) DeletedFor(userID string) bool {
	return contains(c.DeletedBy, userID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
