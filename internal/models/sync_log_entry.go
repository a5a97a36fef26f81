package models

import (
	"time"
)

// SyncLogEntry is one persisted row of a user's sync feed. Seq is the user's
// own strictly increasing, gapless sequence number; ordering across users is
// not meaningful.
type SyncLogEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	TargetID  int64     `json:"target_id"`
	Action    string    `json:"action"`
	RoomID    *int64    `json:"room_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
