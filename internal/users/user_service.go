package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/khanghh/riskauth/model"
	"gorm.io/gorm"
)

const mysqlErrDuplicateEntry = 1062

type Hasher interface {
	Hash(secret string) (string, error)
}

type CreateUserOptions struct {
	Username string
	Email    string
	Password string
}

type UserService struct {
	userRepo UserRepository
	hasher   Hasher
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.First(ctx, "id = ?", userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// LookupByIdentifier resolves an identifier as an email when it parses as an address, otherwise
// as a username.
func (s *UserService) LookupByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if _, err = mail.ParseAddress(identifier); err == nil {
		user, err = s.userRepo.First(ctx, "email = ?", identifier)
	} else {
		user, err = s.userRepo.First(ctx, "username = ?", identifier)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) checkUserExist(ctx context.Context, email string, username string) error {
	existing, err := s.userRepo.First(ctx, "email = ? OR username = ?", email, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		if existing.Username == username {
			return ErrUsernameTaken
		}
		return ErrEmailRegistered
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, opts CreateUserOptions) (*model.User, error) {
	if err := s.checkUserExist(ctx, opts.Email, opts.Username); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(opts.Password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Username: opts.Username,
		Email:    opts.Email,
		Password: passwordHash,
	}

	// lost the race against a concurrent registration
	var mysqlErr *mysql.MySQLError
	if err := s.userRepo.Create(ctx, &user); errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		if strings.Contains(mysqlErr.Message, "username") {
			return nil, ErrUsernameTaken
		}
		return nil, ErrEmailRegistered
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetFailedAttempts clears the per-user failure counter kept for compatibility with older clients.
func (s *UserService) ResetFailedAttempts(ctx context.Context, userID uint) error {
	_, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"failed_login_attempts": 0})
	return err
}

func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func NewUserService(userRepo UserRepository, hasher Hasher) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
	}
}
