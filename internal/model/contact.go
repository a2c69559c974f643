package model

import (
	"strings"
	"time"
)

// Contact is a person the user wants to stay in touch with.
type Contact struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          uint      `gorm:"not null;index;uniqueIndex:idx_contact_name_user,priority:3"`
	FirstName       string    `gorm:"not null;uniqueIndex:idx_contact_name_user,priority:1"`
	LastName        string    `gorm:"not null;default:'';uniqueIndex:idx_contact_name_user,priority:2"`
	IntervalDays    int       `gorm:"not null;check:chk_contacts_interval,interval_days >= 1"`
	LastContactDate time.Time `gorm:"type:date;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName joins first and last name, dropping an empty last name.
func (c Contact) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
