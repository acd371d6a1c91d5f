package model

import (
	"time"

	"gorm.io/gorm"
)

// User stores account credentials and the legacy failed login counter
type User struct {
	ID                  uint   `gorm:"primarykey"`
	Username            string `gorm:"uniqueIndex;size:32;not null"`
	Email               string `gorm:"uniqueIndex;size:256;not null"`
	Password            string `gorm:"size:64;not null"`
	FailedLoginAttempts int    `gorm:"default:0;not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = GenerateID()
	}
	return nil
}
