package models

import (
	"time"
)

// UserKeychainValue holds one encrypted key of a user's keychain (room keys,
// backup keys). The server never sees plaintext key material.
type UserKeychainValue struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Key        string     `json:"key"`
	Ciphertext []byte     `json:"ciphertext"`
	Nonce      []byte     `json:"nonce"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}
