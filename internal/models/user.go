package models

import "time"

// User is an anonymous chat participant. The realtime core only reads it.
type User struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name              string    `gorm:"type:varchar(64);not null" json:"name"`
	PreferredLanguage string    `gorm:"type:varchar(16);not null" json:"preferredLanguage"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"-"`
}

func (User) TableName() string { return "users" }
