package model

import "time"

// SenderID is the registered originating id a user is authorized to send
// under. A user without one cannot be dispatched for.
type SenderID struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;<-:create"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex"`
	SenderID  string    `gorm:"column:sender_id;type:varchar(32);not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
