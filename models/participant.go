package models

import (
	"time"
)

// Participant is one challenge member. Created on first check-in and never deleted;
// later check-ins only refresh the identity fields.
type Participant struct {
	UserID      string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"` // Telegram user id, stringified
	DisplayName string    `gorm:"not null" json:"display_name"`
	ChatID      int64     `gorm:"not null" json:"chat_id"` // chat the member last checked in from
	Mission     *string   `json:"mission,omitempty"`     // free-text label set via /mission
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
