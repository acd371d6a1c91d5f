package audit

import (
	"context"
	"log/slog"

	"github.com/khanghh/riskauth/internal/common"
	"github.com/khanghh/riskauth/internal/metrics"
	"github.com/khanghh/riskauth/model"
)

const (
	EventTypeLoginFailNoUser      = "LOGIN_FAIL_NO_USER"
	EventTypeLoginBlockedHighRisk = "LOGIN_BLOCKED_HIGH_RISK"
	EventTypeLoginFailPassword    = "LOGIN_FAIL_PASSWORD"
	EventTypeNewDeviceDetected    = "NEW_DEVICE_DETECTED"
	EventTypeLoginSuccess         = "LOGIN_SUCCESS"
	EventTypeUserRegistered       = "USER_REGISTERED"
	EventTypeRiskEventApplied     = "RISK_EVENT_APPLIED"
	EventTypeRateLimitExceeded    = "GLOBAL_RATE_LIMIT_EXCEEDED"
)

// Event is a single security relevant occurrence. UserID is nil when no account was resolved.
type Event struct {
	UserID        *uint
	Type          string
	SourceAddress string
	Description   string
}

// Sink accepts security events. Recording never fails from the caller's point of view.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// Recorder persists events into a Repository and logs every one of them.
type Recorder struct {
	repo Repository
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	attrs := []any{"type", event.Type, "ip", event.SourceAddress, "description", event.Description}
	if event.UserID != nil {
		attrs = append(attrs, "userID", *event.UserID)
	}
	slog.Info("Security event", attrs...)

	err := r.repo.RecordEvent(ctx, &model.SecurityEvent{
		UserID:      event.UserID,
		EventType:   event.Type,
		IPAddress:   event.SourceAddress,
		Description: common.TruncateString(event.Description, maxDescriptionLen),
	})
	if err != nil {
		metrics.AuditFailuresTotal.Inc()
		slog.Error("Failed to record security event", "type", event.Type, "error", err)
	}
}

const maxDescriptionLen = 512

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}
