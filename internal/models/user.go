package models

// PublicProfile is the minimal user projection returned by the user
// directory for message enrichment.
type PublicProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
