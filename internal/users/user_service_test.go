package users

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/khanghh/riskauth/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) First(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	ret := m.Called(ctx, query, args)
	if user := ret.Get(0); user != nil {
		return user.(*model.User), ret.Error(1)
	}
	return nil, ret.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error) {
	ret := m.Called(ctx, userID, columns)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

func newTestService() (*UserService, *MockUserRepository) {
	repo := new(MockUserRepository)
	return NewUserService(repo, NewBcryptHasher(bcrypt.MinCost)), repo
}

func TestLookupByIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("email", func(t *testing.T) {
		svc, repo := newTestService()
		alice := &model.User{ID: 1, Username: "alice", Email: "alice@example.com"}
		repo.On("First", ctx, "email = ?", []interface{}{"alice@example.com"}).Return(alice, nil)

		user, err := svc.LookupByIdentifier(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice, user)
		repo.AssertExpectations(t)
	})

	t.Run("username", func(t *testing.T) {
		svc, repo := newTestService()
		alice := &model.User{ID: 1, Username: "alice", Email: "alice@example.com"}
		repo.On("First", ctx, "username = ?", []interface{}{"alice"}).Return(alice, nil)

		user, err := svc.LookupByIdentifier(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice, user)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("First", ctx, "username = ?", []interface{}{"ghost"}).Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.LookupByIdentifier(ctx, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	repo.On("First", ctx, "email = ? OR username = ?", []interface{}{"bob@example.com", "bob"}).Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(nil)

	user, err := svc.CreateUser(ctx, CreateUserOptions{Username: "bob", Email: "bob@example.com", Password: "Abcdef1!"})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.NotEqual(t, "Abcdef1!", user.Password)
	assert.True(t, BcryptHasher{}.Verify("Abcdef1!", user.Password))
	repo.AssertExpectations(t)
}

func TestCreateUserConflicts(t *testing.T) {
	ctx := context.Background()
	opts := CreateUserOptions{Username: "bob", Email: "bob@example.com", Password: "Abcdef1!"}
	conds := []interface{}{"bob@example.com", "bob"}

	t.Run("username taken", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("First", ctx, "email = ? OR username = ?", conds).Return(&model.User{Username: "bob", Email: "other@example.com"}, nil)

		_, err := svc.CreateUser(ctx, opts)
		assert.ErrorIs(t, err, ErrUsernameTaken)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("email registered", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("First", ctx, "email = ? OR username = ?", conds).Return(&model.User{Username: "robert", Email: "bob@example.com"}, nil)

		_, err := svc.CreateUser(ctx, opts)
		assert.ErrorIs(t, err, ErrEmailRegistered)
	})

	t.Run("duplicate on insert", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("First", ctx, "email = ? OR username = ?", conds).Return(nil, gorm.ErrRecordNotFound)
		repo.On("Create", ctx, mock.Anything).Return(&mysql.MySQLError{
			Number:  mysqlErrDuplicateEntry,
			Message: "Duplicate entry 'bob' for key 'user.idx_user_username'",
		})

		_, err := svc.CreateUser(ctx, opts)
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc, repo := newTestService()
		dbErr := errors.New("connection refused")
		repo.On("First", ctx, "email = ? OR username = ?", conds).Return(nil, dbErr)

		_, err := svc.CreateUser(ctx, opts)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestResetFailedAttempts(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()
	repo.On("Updates", ctx, uint(9), map[string]interface{}{"failed_login_attempts": 0}).Return(int64(1), nil)

	require.NoError(t, svc.ResetFailedAttempts(ctx, 9))
	repo.AssertExpectations(t)
}
