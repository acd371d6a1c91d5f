package risk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/khanghh/riskauth/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictStore fails the first n writes with ErrConflict.
type conflictStore struct {
	*MemoryStore
	mu        sync.Mutex
	conflicts int
	writes    int
}

func (s *conflictStore) conflict() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.conflicts > 0 {
		s.conflicts--
		return true
	}
	return false
}

func (s *conflictStore) CreateProfile(ctx context.Context, profile *model.RiskProfile) error {
	if s.conflict() {
		return ErrConflict
	}
	return s.MemoryStore.CreateProfile(ctx, profile)
}

func (s *conflictStore) UpdateProfile(ctx context.Context, profile *model.RiskProfile, expectedVersion uint64) error {
	if s.conflict() {
		return ErrConflict
	}
	return s.MemoryStore.UpdateProfile(ctx, profile, expectedVersion)
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s *failingStore) GetProfile(ctx context.Context, userID uint) (Lookup, error) {
	return Lookup{}, s.err
}

func (s *failingStore) DeviceExists(ctx context.Context, userID uint, fingerprint string) (bool, error) {
	return false, s.err
}

func newTestEngine() (*Engine, *MemoryStore) {
	store := NewMemoryStore()
	return NewEngine(store, DefaultPolicy()), store
}

func TestGetRiskScoreDefault(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	got, err := engine.GetRiskScore(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Assessment{Score: 0, Tier: TierLow}, got)

	lookup, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.False(t, lookup.Found, "read must not create a profile")
}

func TestUpdateRiskScoreLoginFailures(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	var got Assessment
	var err error
	for i := 0; i < 3; i++ {
		got, err = engine.UpdateRiskScore(ctx, 7, EventLoginFail)
		require.NoError(t, err)
	}
	assert.Equal(t, Assessment{Score: 30, Tier: TierLow}, got)

	got, err = engine.UpdateRiskScore(ctx, 7, EventLoginFail)
	require.NoError(t, err)
	assert.Equal(t, Assessment{Score: 40, Tier: TierMedium}, got)
}

func TestUpdateRiskScoreClampsSequence(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()
	events := []EventType{
		EventSuspiciousActivity, EventSuspiciousActivity, EventSuspiciousActivity, EventSuspiciousActivity,
		EventNewDevice, EventPasswordReset, EventPasswordReset, EventPasswordReset, EventPasswordReset,
		EventPasswordReset, EventPasswordReset, EventLoginSuccess, EventNewIP,
	}
	for _, event := range events {
		got, err := engine.UpdateRiskScore(ctx, 3, event)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Score, MinScore)
		assert.LessOrEqual(t, got.Score, MaxScore)
		assert.Equal(t, DefaultPolicy().Classify(got.Score), got.Tier)
	}
	got, err := engine.GetRiskScore(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Score)
}

func TestUpdateRiskScoreUnknownEventIsNoop(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	got, err := engine.UpdateRiskScore(ctx, 9, "PHISHING_CLICK")
	require.NoError(t, err)
	assert.Equal(t, Assessment{Score: 0, Tier: TierLow}, got)

	lookup, _ := store.GetProfile(ctx, 9)
	assert.False(t, lookup.Found)
}

func TestUpdateRiskScoreRegisterMaterializesProfile(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	got, err := engine.UpdateRiskScore(ctx, 11, EventRegister)
	require.NoError(t, err)
	assert.Equal(t, Assessment{Score: 0, Tier: TierLow}, got)

	lookup, _ := store.GetProfile(ctx, 11)
	require.True(t, lookup.Found)
	assert.Equal(t, 0, lookup.Profile.Score)
	assert.Equal(t, string(TierLow), lookup.Profile.Tier)
	assert.Equal(t, uint64(1), lookup.Profile.Version)
}

func TestUpdateRiskScoreBumpsVersion(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	_, err := engine.UpdateRiskScore(ctx, 5, EventNewDevice)
	require.NoError(t, err)
	_, err = engine.UpdateRiskScore(ctx, 5, EventNewIP)
	require.NoError(t, err)

	lookup, _ := store.GetProfile(ctx, 5)
	assert.Equal(t, 35, lookup.Profile.Score)
	assert.Equal(t, string(TierMedium), lookup.Profile.Tier)
	assert.Equal(t, uint64(2), lookup.Profile.Version)
}

func TestUpdateRiskScoreConcurrent(t *testing.T) {
	for _, n := range []int{5, 50} {
		engine, _ := newTestEngine()
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := engine.UpdateRiskScore(ctx, 42, EventLoginFail)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := engine.GetRiskScore(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, min(100, 10*n), got.Score)
		assert.Zero(t, engine.locks.size(), "idle lock entries must be released")
	}
}

func TestUpdateRiskScoreConcurrentEnginesSharingStore(t *testing.T) {
	store := NewMemoryStore()
	engines := []*Engine{
		NewEngine(store, DefaultPolicy(), WithMaxRetries(64)),
		NewEngine(store, DefaultPolicy(), WithMaxRetries(64)),
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func(engine *Engine) {
			defer wg.Done()
			_, err := engine.UpdateRiskScore(ctx, 8, EventLoginFail)
			assert.NoError(t, err)
		}(engines[i%2])
	}
	wg.Wait()

	got, err := engines[0].GetRiskScore(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 70, got.Score)
	assert.Equal(t, TierMedium, got.Tier)
}

func TestUpdateRiskScoreRetriesConflicts(t *testing.T) {
	store := &conflictStore{MemoryStore: NewMemoryStore(), conflicts: 2}
	engine := NewEngine(store, DefaultPolicy())

	got, err := engine.UpdateRiskScore(context.Background(), 1, EventNewDevice)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Score)
	assert.Equal(t, 3, store.writes)
}

func TestUpdateRiskScoreGivesUpAfterMaxRetries(t *testing.T) {
	store := &conflictStore{MemoryStore: NewMemoryStore(), conflicts: 100}
	engine := NewEngine(store, DefaultPolicy(), WithMaxRetries(3))

	_, err := engine.UpdateRiskScore(context.Background(), 1, EventNewDevice)
	assert.ErrorIs(t, err, ErrTooManyConflicts)
	assert.Equal(t, 3, store.writes)
}

func TestUpdateRiskScoreStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	engine := NewEngine(&failingStore{MemoryStore: NewMemoryStore(), err: storeErr}, DefaultPolicy())

	_, err := engine.UpdateRiskScore(context.Background(), 1, EventLoginFail)
	assert.ErrorIs(t, err, storeErr)

	_, err = engine.GetRiskScore(context.Background(), 1)
	assert.ErrorIs(t, err, storeErr)

	_, err = engine.IsNewDevice(context.Background(), 1, "fp")
	assert.ErrorIs(t, err, storeErr)
}

func TestUpdateRiskScoreCanceledContext(t *testing.T) {
	engine, _ := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.UpdateRiskScore(ctx, 1, EventLoginFail)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDevices(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	isNew, err := engine.IsNewDevice(ctx, 1, "fp-1")
	require.NoError(t, err)
	assert.True(t, isNew)

	require.NoError(t, engine.AddDevice(ctx, 1, "fp-1", "Mozilla/5.0"))
	isNew, err = engine.IsNewDevice(ctx, 1, "fp-1")
	require.NoError(t, err)
	assert.False(t, isNew)

	// same fingerprint is still new for another user
	isNew, err = engine.IsNewDevice(ctx, 2, "fp-1")
	require.NoError(t, err)
	assert.True(t, isNew)

	// duplicate insert is a no-op
	assert.NoError(t, engine.AddDevice(ctx, 1, "fp-1", "Mozilla/5.0"))
}

func TestAddDeviceTruncatesAgentLabel(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.AddDevice(ctx, 1, "fp-1", "a"+strings.Repeat("é", 300)))
	device := store.devices[deviceKey{userID: 1, fingerprint: "fp-1"}]
	assert.True(t, utf8.ValidString(device.UserAgent))
	assert.Len(t, device.UserAgent, maxAgentLabelLen-1)
}
