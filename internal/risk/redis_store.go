package risk

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/khanghh/riskauth/internal/store"
	"github.com/khanghh/riskauth/model"
	"github.com/khanghh/riskauth/params"
	"github.com/redis/go-redis/v9"
)

type profileRecord struct {
	Score     int    `redis:"score"`
	Tier      string `redis:"tier"`
	Version   uint64 `redis:"version"`
	UpdatedAt int64  `redis:"updated_at"`
}

// RedisStore keeps one hash per user profile and one hash of trusted fingerprints per user.
// Writes run inside WATCH/MULTI transactions so that concurrent writers on other instances
// surface as ErrConflict. Scores are mirrored into a sorted set for the operator queries.
type RedisStore struct {
	rdb      redis.UniversalClient
	profiles store.Store[profileRecord]
	devices  store.Storage
}

func userKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

func (s *RedisStore) GetProfile(ctx context.Context, userID uint) (Lookup, error) {
	rec, err := s.profiles.Get(ctx, userKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return Lookup{}, nil
	}
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{
		Profile: model.RiskProfile{
			UserID:    userID,
			Score:     rec.Score,
			Tier:      rec.Tier,
			Version:   rec.Version,
			UpdatedAt: time.UnixMilli(rec.UpdatedAt),
		},
		Found: true,
	}, nil
}

func (s *RedisStore) writeProfile(ctx context.Context, key string, check func(tx *redis.Tx) error, profile *model.RiskProfile) error {
	profile.UpdatedAt = time.Now()
	rec := profileRecord{
		Score:     profile.Score,
		Tier:      profile.Tier,
		Version:   profile.Version,
		UpdatedAt: profile.UpdatedAt.UnixMilli(),
	}
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		if err := check(tx); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, &rec)
			pipe.ZAdd(ctx, params.RiskScoreIndexKey, redis.Z{Score: float64(profile.Score), Member: userKey(profile.UserID)})
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (s *RedisStore) CreateProfile(ctx context.Context, profile *model.RiskProfile) error {
	key := s.profiles.Key(userKey(profile.UserID))
	return s.writeProfile(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return ErrConflict
		}
		return nil
	}, profile)
}

func (s *RedisStore) UpdateProfile(ctx context.Context, profile *model.RiskProfile, expectedVersion uint64) error {
	key := s.profiles.Key(userKey(profile.UserID))
	return s.writeProfile(ctx, key, func(tx *redis.Tx) error {
		version, err := tx.HGet(ctx, key, "version").Uint64()
		if errors.Is(err, redis.Nil) {
			return ErrConflict
		}
		if err != nil {
			return err
		}
		if version != expectedVersion {
			return ErrConflict
		}
		return nil
	}, profile)
}

func (s *RedisStore) DeviceExists(ctx context.Context, userID uint, fingerprint string) (bool, error) {
	return s.rdb.HExists(ctx, s.devices.Key(userKey(userID)), fingerprint).Result()
}

// InsertDevice stores the agent label under the fingerprint field of the user's device hash.
func (s *RedisStore) InsertDevice(ctx context.Context, device *model.TrustedDevice) error {
	created, err := s.rdb.HSetNX(ctx, s.devices.Key(userKey(device.UserID)), device.Fingerprint, device.UserAgent).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDeviceExists
	}
	device.CreatedAt = time.Now()
	return nil
}

func (s *RedisStore) TopProfiles(ctx context.Context, limit int) ([]model.RiskProfile, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := s.rdb.ZRevRange(ctx, params.RiskScoreIndexKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	profiles := make([]model.RiskProfile, 0, len(members))
	for _, member := range members {
		userID, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		lookup, err := s.GetProfile(ctx, uint(userID))
		if err != nil {
			return nil, err
		}
		if lookup.Found {
			profiles = append(profiles, lookup.Profile)
		}
	}
	return profiles, nil
}

func (s *RedisStore) CountAbove(ctx context.Context, score int) (int64, error) {
	return s.rdb.ZCount(ctx, params.RiskScoreIndexKey, "("+strconv.Itoa(score), "+inf").Result()
}

func NewRedisStore(storage *store.RedisStorage) *RedisStore {
	return &RedisStore{
		rdb:      storage.Conn(),
		profiles: store.New[profileRecord](storage, params.RiskProfileKeyPrefix),
		devices:  store.StorageWithPrefix(storage, params.TrustedDeviceKeyPrefix),
	}
}
