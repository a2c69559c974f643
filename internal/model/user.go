package model

import "time"

// User is a registered chat that receives daily reminders.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	ChatID       int64  `gorm:"uniqueIndex;not null"`
	IsActive     bool   `gorm:"not null;default:true"`
	ReminderTime string `gorm:"not null"` // HH:MM:SS in the configured zone
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Contacts     []Contact `gorm:"foreignKey:UserID"`
}
