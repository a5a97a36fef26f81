package models

import (
	"time"
)

// Message content is end-to-end encrypted; the server only ever stores
// ciphertext and the nonce the clients used.
type Message struct {
	ID         int64      `json:"id"`
	RoomID     int64      `json:"room_id"`
	MemberID   int64      `json:"member_id"`
	UserID     int64      `json:"user_id"`
	ThreadID   *int64     `json:"thread_id,omitempty"`
	Ciphertext []byte     `json:"ciphertext"`
	Nonce      []byte     `json:"nonce"`
	ModelLabel *string    `json:"model_label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
