package model

import "time"

// RiskProfile is the latest aggregate risk of a user. Score and Tier are always written together.
type RiskProfile struct {
	UserID    uint   `gorm:"primaryKey;autoIncrement:false"`
	Score     int    `gorm:"not null;default:0;index"`
	Tier      string `gorm:"size:16;not null"`
	Version   uint64 `gorm:"not null;default:0"` // bumped on every update, used for compare-and-swap
	UpdatedAt time.Time
}
