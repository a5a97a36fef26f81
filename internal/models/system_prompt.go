package models

import (
	"time"
)

type SystemPrompt struct {
	ID        int64      `json:"id"`
	Key       string     `json:"key"`
	Title     string     `json:"title"`
	Prompt    string     `json:"prompt"`
	Language  string     `json:"language"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
