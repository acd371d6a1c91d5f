package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khanghh/riskauth/internal/audit"
	"github.com/khanghh/riskauth/internal/fingerprint"
	"github.com/khanghh/riskauth/internal/metrics"
	"github.com/khanghh/riskauth/internal/risk"
	"github.com/khanghh/riskauth/internal/users"
	"github.com/khanghh/riskauth/model"
)

type AccountStore interface {
	LookupByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
	CreateUser(ctx context.Context, opts users.CreateUserOptions) (*model.User, error)
	ResetFailedAttempts(ctx context.Context, userID uint) error
}

type CredentialVerifier interface {
	Verify(secret string, hash string) bool
}

type RiskEngine interface {
	Policy() risk.Policy
	GetRiskScore(ctx context.Context, userID uint) (risk.Assessment, error)
	UpdateRiskScore(ctx context.Context, userID uint, event risk.EventType) (risk.Assessment, error)
	IsNewDevice(ctx context.Context, userID uint, fingerprint string) (bool, error)
	AddDevice(ctx context.Context, userID uint, fingerprint string, agentLabel string) error
}

type Options struct {
	Accounts    AccountStore
	Credentials CredentialVerifier
	Risk        RiskEngine
	Audit       audit.Sink
	// TrustOnFirstUse trusts a new device right after a successful credential check.
	TrustOnFirstUse bool
	// DummyHash, when set, is verified against the submitted secret for unknown identities so both
	// denial paths pay the hashing cost.
	DummyHash string
}

// Authenticator runs the login decision state machine and the registration flow.
type Authenticator struct {
	accounts        AccountStore
	credentials     CredentialVerifier
	risk            RiskEngine
	audit           audit.Sink
	trustOnFirstUse bool
	dummyHash       string
}

func (a *Authenticator) record(ctx context.Context, userID *uint, eventType string, addr string, description string) {
	a.audit.Record(ctx, audit.Event{
		UserID:        userID,
		Type:          eventType,
		SourceAddress: addr,
		Description:   description,
	})
}

func decide(outcome *LoginOutcome, decision Decision) *LoginOutcome {
	outcome.Decision = decision
	outcome.State = StateDecided
	metrics.LoginDecisionsTotal.WithLabelValues(string(decision)).Inc()
	return outcome
}

func riskDescription(score int) string {
	return fmt.Sprintf("Risk Score: %d", score)
}

// Login evaluates an attempt in a fixed order: identity, risk gate, credentials, device, success.
// Denials are returned as outcomes, errors are reserved for invalid input and store failures.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (*LoginOutcome, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		return nil, &ValidationError{Field: "identifier", Message: "Email and password required"}
	}
	if req.Secret == "" {
		return nil, &ValidationError{Field: "password", Message: "Email and password required"}
	}

	outcome := &LoginOutcome{State: StateStart}

	user, err := a.accounts.LookupByIdentifier(ctx, req.Identifier)
	if errors.Is(err, users.ErrUserNotFound) {
		if a.dummyHash != "" {
			a.credentials.Verify(req.Secret, a.dummyHash)
		}
		slog.Debug("Login for unknown identity", "ip", req.SourceAddress)
		a.record(ctx, nil, audit.EventTypeLoginFailNoUser, req.SourceAddress, "Identifier: "+req.Identifier)
		return decide(outcome, DecisionDenyUnknownIdentity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	outcome.State = StateIdentityResolved
	userID := user.ID

	current, err := a.risk.GetRiskScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	outcome.Risk = current
	if current.Tier.Blocked() {
		slog.Info("Login blocked by risk tier", "userID", userID, "score", current.Score, "tier", current.Tier)
		a.record(ctx, &userID, audit.EventTypeLoginBlockedHighRisk, req.SourceAddress, riskDescription(current.Score))
		return decide(outcome, DecisionDenyRiskBlocked), nil
	}
	outcome.State = StateRiskGated

	if !a.credentials.Verify(req.Secret, user.Password) {
		failed, err := a.risk.UpdateRiskScore(ctx, userID, risk.EventLoginFail)
		if err != nil {
			return nil, err
		}
		outcome.Risk = failed
		a.record(ctx, &userID, audit.EventTypeLoginFailPassword, req.SourceAddress, "Invalid password")
		return decide(outcome, DecisionDenyInvalidCredentials), nil
	}
	outcome.State = StateCredentialChecked

	deviceHash := fingerprint.Compute(req.SourceAddress, req.Agent)
	isNew, err := a.risk.IsNewDevice(ctx, userID, deviceHash)
	if err != nil {
		return nil, err
	}
	if isNew {
		current, err = a.risk.UpdateRiskScore(ctx, userID, risk.EventNewDevice)
		if err != nil {
			return nil, err
		}
		a.record(ctx, &userID, audit.EventTypeNewDeviceDetected, req.SourceAddress, "Login from new device")
		if a.trustOnFirstUse {
			if err := a.risk.AddDevice(ctx, userID, deviceHash, req.Agent); err != nil {
				return nil, err
			}
		}
	}
	outcome.State = StateDeviceEvaluated
	outcome.Risk = current

	if _, err := a.risk.UpdateRiskScore(ctx, userID, risk.EventLoginSuccess); err != nil {
		return nil, err
	}
	if err := a.accounts.ResetFailedAttempts(ctx, userID); err != nil {
		return nil, fmt.Errorf("reset failed attempts: %w", err)
	}
	a.record(ctx, &userID, audit.EventTypeLoginSuccess, req.SourceAddress, riskDescription(current.Score))

	outcome.Profile = publicProfile(user)
	return decide(outcome, DecisionAllow), nil
}

// Register creates an account, materializes its risk profile and trusts the registering device.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (*RegisterOutcome, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if verr := validateRegisterRequest(req); verr != nil {
		return &RegisterOutcome{Result: RegisterResultInvalid, Validation: verr}, nil
	}

	user, err := a.accounts.CreateUser(ctx, users.CreateUserOptions{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Secret,
	})
	if errors.Is(err, users.ErrUsernameTaken) || errors.Is(err, users.ErrEmailRegistered) {
		return &RegisterOutcome{Result: RegisterResultConflict, Conflict: err}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	userID := user.ID
	if _, err := a.risk.UpdateRiskScore(ctx, userID, risk.EventRegister); err != nil {
		return nil, err
	}
	deviceHash := fingerprint.Compute(req.SourceAddress, req.Agent)
	if err := a.risk.AddDevice(ctx, userID, deviceHash, req.Agent); err != nil {
		return nil, err
	}
	a.record(ctx, &userID, audit.EventTypeUserRegistered, req.SourceAddress, "Username: "+user.Username)

	slog.Info("User registered", "userID", userID, "username", user.Username)
	return &RegisterOutcome{Result: RegisterResultRegistered, UserID: userID}, nil
}

// CheckSession returns the current assessment of an authenticated user without changing it.
func (a *Authenticator) CheckSession(ctx context.Context, userID uint) (risk.Assessment, error) {
	return a.risk.GetRiskScore(ctx, userID)
}

// ApplyRiskEvent applies an operator reported event to a user's score.
func (a *Authenticator) ApplyRiskEvent(ctx context.Context, userID uint, event risk.EventType, sourceAddress string) (risk.Assessment, error) {
	event = risk.EventType(strings.ToUpper(strings.TrimSpace(string(event))))
	if _, ok := a.risk.Policy().Weight(event); !ok {
		return risk.Assessment{}, &ValidationError{Field: "eventType", Message: "Unknown risk event type."}
	}
	if _, err := a.accounts.GetUserByID(ctx, userID); err != nil {
		return risk.Assessment{}, err
	}
	assessment, err := a.risk.UpdateRiskScore(ctx, userID, event)
	if err != nil {
		return risk.Assessment{}, err
	}
	a.record(ctx, &userID, audit.EventTypeRiskEventApplied, sourceAddress,
		fmt.Sprintf("Event: %s, %s", event, riskDescription(assessment.Score)))
	return assessment, nil
}

func NewAuthenticator(opts Options) *Authenticator {
	return &Authenticator{
		accounts:        opts.Accounts,
		credentials:     opts.Credentials,
		risk:            opts.Risk,
		audit:           opts.Audit,
		trustOnFirstUse: opts.TrustOnFirstUse,
		dummyHash:       opts.DummyHash,
	}
}
