package models

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationOpen     InvitationStatus = "open"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
)

type Invitation struct {
	ID        int64            `json:"id"`
	RoomID    int64            `json:"room_id"`
	UserID    int64            `json:"user_id"`
	InviterID int64            `json:"inviter_id"`
	Token     uuid.UUID        `json:"token"`
	Status    InvitationStatus `json:"status"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}
