package risk

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/khanghh/riskauth/model"
)

type deviceKey struct {
	userID      uint
	fingerprint string
}

// MemoryStore keeps profiles and devices in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[uint]model.RiskProfile
	devices  map[deviceKey]model.TrustedDevice
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID uint) (Lookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	return Lookup{Profile: profile, Found: ok}, nil
}

func (s *MemoryStore) CreateProfile(ctx context.Context, profile *model.RiskProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.UserID]; ok {
		return ErrConflict
	}
	profile.UpdatedAt = time.Now()
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, profile *model.RiskProfile, expectedVersion uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.profiles[profile.UserID]
	if !ok || current.Version != expectedVersion {
		return ErrConflict
	}
	profile.UpdatedAt = time.Now()
	s.profiles[profile.UserID] = *profile
	return nil
}

func (s *MemoryStore) DeviceExists(ctx context.Context, userID uint, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[deviceKey{userID, fingerprint}]
	return ok, nil
}

func (s *MemoryStore) InsertDevice(ctx context.Context, device *model.TrustedDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := deviceKey{device.UserID, device.Fingerprint}
	if _, ok := s.devices[key]; ok {
		return ErrDeviceExists
	}
	device.CreatedAt = time.Now()
	s.devices[key] = *device
	return nil
}

func (s *MemoryStore) TopProfiles(ctx context.Context, limit int) ([]model.RiskProfile, error) {
	s.mu.RLock()
	profiles := make([]model.RiskProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		profiles = append(profiles, profile)
	}
	s.mu.RUnlock()

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Score != profiles[j].Score {
			return profiles[i].Score > profiles[j].Score
		}
		return profiles[i].UserID < profiles[j].UserID
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func (s *MemoryStore) CountAbove(ctx context.Context, score int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, profile := range s.profiles {
		if profile.Score > score {
			count++
		}
	}
	return count, nil
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[uint]model.RiskProfile),
		devices:  make(map[deviceKey]model.TrustedDevice),
	}
}
