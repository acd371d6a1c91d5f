package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/khanghh/riskauth/internal/common"
	"github.com/khanghh/riskauth/internal/metrics"
	"github.com/khanghh/riskauth/model"
	"github.com/khanghh/riskauth/params"
)

const maxAgentLabelLen = 512

// Assessment is a score together with the tier derived from it.
type Assessment struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

type Option func(*Engine)

// WithMaxRetries bounds the compare-and-swap attempts of a single update.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// Engine owns the scoring policy and is the only writer of risk profiles.
type Engine struct {
	store      Store
	policy     Policy
	locks      *lockTable
	maxRetries int
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// GetRiskScore returns the current assessment of a user, (0, LOW) if no profile exists yet.
// The tier is recomputed from the stored score.
func (e *Engine) GetRiskScore(ctx context.Context, userID uint) (Assessment, error) {
	lookup, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return Assessment{}, fmt.Errorf("get risk profile: %w", err)
	}
	if !lookup.Found {
		return Assessment{Score: MinScore, Tier: e.policy.Classify(MinScore)}, nil
	}
	return Assessment{Score: lookup.Profile.Score, Tier: e.policy.Classify(lookup.Profile.Score)}, nil
}

// UpdateRiskScore applies the weight of event to the user's score. Updates of the same user are
// serialized in process and guarded by a versioned compare-and-swap in the store. Unrecognized
// events leave the profile untouched and return the current assessment.
func (e *Engine) UpdateRiskScore(ctx context.Context, userID uint, event EventType) (Assessment, error) {
	if _, ok := e.policy.Weight(event); !ok {
		slog.Debug("Ignoring unrecognized risk event", "userID", userID, "event", event)
		return e.GetRiskScore(ctx, userID)
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Assessment{}, err
		}
		assessment, err := e.tryUpdate(ctx, userID, event)
		if errors.Is(err, ErrConflict) {
			metrics.RiskUpdateConflictsTotal.Inc()
			slog.Debug("Risk profile update conflict, retrying", "userID", userID, "attempt", attempt+1)
			continue
		}
		return assessment, err
	}
	return Assessment{}, ErrTooManyConflicts
}

func (e *Engine) tryUpdate(ctx context.Context, userID uint, event EventType) (Assessment, error) {
	lookup, err := e.store.GetProfile(ctx, userID)
	if err != nil {
		return Assessment{}, fmt.Errorf("get risk profile: %w", err)
	}

	current := MinScore
	if lookup.Found {
		current = lookup.Profile.Score
	}
	next := Assessment{Score: e.policy.Apply(current, event)}
	next.Tier = e.policy.Classify(next.Score)

	if !lookup.Found {
		profile := model.RiskProfile{
			UserID:  userID,
			Score:   next.Score,
			Tier:    string(next.Tier),
			Version: 1,
		}
		if err := e.store.CreateProfile(ctx, &profile); err != nil {
			return Assessment{}, wrapSaveError(err)
		}
	} else {
		if next.Score == lookup.Profile.Score && string(next.Tier) == lookup.Profile.Tier {
			return next, nil
		}
		expected := lookup.Profile.Version
		profile := lookup.Profile
		profile.Score = next.Score
		profile.Tier = string(next.Tier)
		profile.Version = expected + 1
		if err := e.store.UpdateProfile(ctx, &profile, expected); err != nil {
			return Assessment{}, wrapSaveError(err)
		}
	}

	slog.Info("Risk score updated", "userID", userID, "event", event, "from", current, "to", next.Score, "tier", next.Tier)
	metrics.RiskUpdatesTotal.WithLabelValues(string(event), string(next.Tier)).Inc()
	return next, nil
}

func wrapSaveError(err error) error {
	if errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("save risk profile: %w", err)
}

// IsNewDevice reports whether the fingerprint has never been trusted for the user.
func (e *Engine) IsNewDevice(ctx context.Context, userID uint, fingerprint string) (bool, error) {
	exists, err := e.store.DeviceExists(ctx, userID, fingerprint)
	if err != nil {
		return false, fmt.Errorf("check trusted device: %w", err)
	}
	return !exists, nil
}

// AddDevice trusts the fingerprint for the user. Adding an already trusted device is a no-op.
func (e *Engine) AddDevice(ctx context.Context, userID uint, fingerprint string, agentLabel string) error {
	device := model.TrustedDevice{
		UserID:      userID,
		Fingerprint: fingerprint,
		UserAgent:   common.TruncateString(agentLabel, maxAgentLabelLen),
		Trusted:     true,
	}
	err := e.store.InsertDevice(ctx, &device)
	if errors.Is(err, ErrDeviceExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert trusted device: %w", err)
	}
	return nil
}

func NewEngine(store Store, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		policy:     policy,
		locks:      newLockTable(),
		maxRetries: params.RiskUpdateMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
