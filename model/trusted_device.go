package model

import "time"

type TrustedDevice struct {
	ID          uint   `gorm:"primarykey,autoIncrement"`
	UserID      uint   `gorm:"not null;index:idx_user_device,unique"`
	Fingerprint string `gorm:"size:64;not null;index:idx_user_device,unique"`
	UserAgent   string `gorm:"size:512;not null"`
	Trusted     bool   `gorm:"default:true;not null"`
	CreatedAt   time.Time
}
