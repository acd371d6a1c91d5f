package auth

import (
	"github.com/khanghh/riskauth/internal/risk"
	"github.com/khanghh/riskauth/model"
)

// State is the last step a login attempt reached.
type State string

const (
	StateStart             State = "START"
	StateIdentityResolved  State = "IDENTITY_RESOLVED"
	StateRiskGated         State = "RISK_GATED"
	StateCredentialChecked State = "CREDENTIAL_CHECKED"
	StateDeviceEvaluated   State = "DEVICE_EVALUATED"
	StateDecided           State = "DECIDED"
)

type Decision string

const (
	DecisionAllow                  Decision = "ALLOW"
	DecisionDenyInvalidCredentials Decision = "DENY_INVALID_CREDENTIALS"
	DecisionDenyUnknownIdentity    Decision = "DENY_UNKNOWN_IDENTITY"
	DecisionDenyRiskBlocked        Decision = "DENY_RISK_BLOCKED"
)

type LoginRequest struct {
	Identifier    string
	Secret        string
	SourceAddress string
	Agent         string
}

// PublicProfile is the part of an account that may be returned to its owner.
type PublicProfile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func publicProfile(user *model.User) *PublicProfile {
	return &PublicProfile{ID: user.ID, Username: user.Username, Email: user.Email}
}

// LoginOutcome is the terminal decision of a login attempt. Profile is set only on ALLOW.
// Risk is the assessment the decision was based on: the gate value when blocked, the value just
// before success finalization when allowed.
type LoginOutcome struct {
	Decision Decision
	State    State
	Profile  *PublicProfile
	Risk     risk.Assessment
}

type RegisterRequest struct {
	Username      string
	Email         string
	Secret        string
	SourceAddress string
	Agent         string
}

type RegisterResult string

const (
	RegisterResultRegistered RegisterResult = "REGISTERED"
	RegisterResultInvalid    RegisterResult = "REGISTER_INVALID"
	RegisterResultConflict   RegisterResult = "REGISTER_CONFLICT"
)

type RegisterOutcome struct {
	Result     RegisterResult
	UserID     uint
	Validation *ValidationError // set on REGISTER_INVALID
	Conflict   error            // users.ErrUsernameTaken or users.ErrEmailRegistered on REGISTER_CONFLICT
}
