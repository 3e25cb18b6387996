package models

import "time"

type Notification struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID   *int64    `gorm:"index" json:"recipient_id,omitempty"`
	RecipientRole string    `gorm:"index" json:"recipient_role,omitempty"`
	Type          string    `gorm:"not null" json:"type"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	Link          string    `json:"link"`
	Read          bool      `gorm:"default:false" json:"read"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
