package models

// Realtime event types pushed to user rooms.
const (
	EventNewMessage    = "NEW_MESSAGE"
	EventDeleteMessage = "DELETE_MESSAGE"
)
