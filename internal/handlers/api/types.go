package api

import (
	"context"
	"time"

	"github.com/khanghh/riskauth/internal/auth"
	"github.com/khanghh/riskauth/internal/risk"
	"github.com/khanghh/riskauth/model"
)

type Authenticator interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginOutcome, error)
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterOutcome, error)
	CheckSession(ctx context.Context, userID uint) (risk.Assessment, error)
	ApplyRiskEvent(ctx context.Context, userID uint, event risk.EventType, sourceAddress string) (risk.Assessment, error)
}

type TokenIssuer interface {
	Issue(userID uint, tier string) (string, time.Time, error)
}

type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}
