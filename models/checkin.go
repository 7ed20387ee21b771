package models

import (
	"time"
)

// Checkin is one participation event. A user may check in several times per day;
// the streak engine counts each user at most once per DayKey.
type Checkin struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	DisplayName string    `json:"display_name"` // snapshot at check-in time
	ChatID      int64     `json:"chat_id"`
	Content     string    `gorm:"type:text" json:"content"`
	PhotoRef    *string   `gorm:"type:text" json:"photo_ref,omitempty"` // public URL of the uploaded photo
	DayKey      string    `gorm:"type:varchar(10);index;not null" json:"day_key"` // YYYY-MM-DD in the group's zone
	CreatedAt   time.Time `json:"created_at"`
}
