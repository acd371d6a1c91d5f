package model

import "time"

type SecurityEvent struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	UserID      *uint     `gorm:"index"`                  // nil when no user could be resolved
	EventType   string    `gorm:"size:64;not null;index"` // LOGIN_SUCCESS, LOGIN_FAIL_PASSWORD...
	IPAddress   string    `gorm:"size:45;not null"`       // IPv4/IPv6
	Description string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

func (SecurityEvent) TableName() string {
	return "security_log"
}
