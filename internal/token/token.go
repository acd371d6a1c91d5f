package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khanghh/riskauth/params"
	"github.com/spf13/cast"
)

var (
	ErrTokenInvalid = errors.New("invalid session token")
)

type Claims struct {
	RiskLevel string `json:"rl,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject of the token.
func (c *Claims) UserID() (uint, error) {
	return cast.ToUintE(c.Subject)
}

// Issuer signs and verifies session tokens with a shared HMAC key.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// Issue creates a token for the user carrying the risk tier observed at login.
func (i *Issuer) Issue(userID uint, tier string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		RiskLevel: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signedToken, expiresAt, nil
}

// Verify parses the token and checks its signature and expiry.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = params.SessionTokenExpiration
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}
