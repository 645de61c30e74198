package model

import "time"

// SessionRecord is a user session as persisted in the session table. Data
// holds arbitrary per-session values (user id, flash messages, oauth state).
type SessionRecord struct {
	ID        string         `json:"session_id"`
	Data      map[string]any `json:"data"`
	ExpiresAt time.Time      `json:"expires_at"`
}
