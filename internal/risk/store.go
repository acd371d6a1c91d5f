package risk

import (
	"context"

	"github.com/khanghh/riskauth/model"
)

// Lookup is the result of reading a risk profile: either Found with the stored profile, or absent.
type Lookup struct {
	Profile model.RiskProfile
	Found   bool
}

// Store persists risk profiles and trusted devices. Only the Engine writes profiles.
type Store interface {
	GetProfile(ctx context.Context, userID uint) (Lookup, error)
	// CreateProfile inserts a new profile, returns ErrConflict if one already exists.
	CreateProfile(ctx context.Context, profile *model.RiskProfile) error
	// UpdateProfile overwrites score, tier and version if the stored version still equals
	// expectedVersion, returns ErrConflict otherwise.
	UpdateProfile(ctx context.Context, profile *model.RiskProfile, expectedVersion uint64) error
	DeviceExists(ctx context.Context, userID uint, fingerprint string) (bool, error)
	// InsertDevice returns ErrDeviceExists if the pair is already trusted.
	InsertDevice(ctx context.Context, device *model.TrustedDevice) error
}

// Reporter serves read-only aggregate queries for operators.
type Reporter interface {
	TopProfiles(ctx context.Context, limit int) ([]model.RiskProfile, error)
	CountAbove(ctx context.Context, score int) (int64, error)
}
