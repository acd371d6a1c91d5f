package risk

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/khanghh/riskauth/model"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

const mysqlErrDuplicateEntry = 1062

// Repository is the MySQL backed Store.
type Repository struct {
	db *gorm.DB
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry)
}

// GetProfile always reads from the primary, a lagging replica would only produce version conflicts.
func (r *Repository) GetProfile(ctx context.Context, userID uint) (Lookup, error) {
	var profile model.RiskProfile
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Lookup{}, nil
	}
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Profile: profile, Found: true}, nil
}

func (r *Repository) CreateProfile(ctx context.Context, profile *model.RiskProfile) error {
	err := r.db.WithContext(ctx).Create(profile).Error
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

func (r *Repository) UpdateProfile(ctx context.Context, profile *model.RiskProfile, expectedVersion uint64) error {
	updates := map[string]interface{}{
		"score":   profile.Score,
		"tier":    profile.Tier,
		"version": profile.Version,
	}
	ret := r.db.WithContext(ctx).
		Model(&model.RiskProfile{}).
		Where("user_id = ? AND version = ?", profile.UserID, expectedVersion).
		Updates(updates)
	if ret.Error != nil {
		return ret.Error
	}
	if ret.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *Repository) DeviceExists(ctx context.Context, userID uint, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TrustedDevice{}).
		Where("user_id = ? AND fingerprint = ?", userID, fingerprint).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) InsertDevice(ctx context.Context, device *model.TrustedDevice) error {
	err := r.db.WithContext(ctx).Create(device).Error
	if isDuplicateKey(err) {
		return ErrDeviceExists
	}
	return err
}

func (r *Repository) TopProfiles(ctx context.Context, limit int) ([]model.RiskProfile, error) {
	var profiles []model.RiskProfile
	err := r.db.WithContext(ctx).Order("score DESC").Limit(limit).Find(&profiles).Error
	return profiles, err
}

func (r *Repository) CountAbove(ctx context.Context, score int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RiskProfile{}).Where("score > ?", score).Count(&count).Error
	return count, err
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}
