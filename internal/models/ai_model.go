package models

import (
	"time"
)

type AiModel struct {
	ID         int64      `json:"id"`
	Provider   string     `json:"provider"`
	ModelID    string     `json:"model_id"`
	Label      string     `json:"label"`
	Active     bool       `json:"active"`
	Streamable bool       `json:"streamable"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}
