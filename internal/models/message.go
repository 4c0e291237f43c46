package models

import "time"

// Message belongs to exactly one chat. Recipients is a snapshot of the
// chat's participants at creation time, so old messages keep their
// visibility no matter what happens to the chat afterwards.
type Message struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	ChatID     string    `bson:"chat_id" json:"chat_id"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	Content    string    `bson:"content" json:"content"`
	Recipients []string  `bson:"recipients" json:"recipients"`
	DeletedBy  []string  `bson:"deleted_by" json:"-"`
	ReadBy     []string  `bson:"read_by" json:"read_by"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`

	// Sender is filled in at read time from the user directory, never stored.
	Sender *PublicProfile `bson:"-" json:"sender,omitempty"`
}

func (m *Message) HasRecipient(userID string) bool {
	return contains(m.Recipients, userID)
}

func (m *Message) DeletedFor(userID string) bool {
	return contains(m.DeletedBy, userID)
}
