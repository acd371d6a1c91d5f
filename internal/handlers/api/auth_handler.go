package api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/riskauth/internal/auth"
	"github.com/khanghh/riskauth/internal/middlewares"
	"github.com/khanghh/riskauth/internal/users"
)

var (
	MsgInvalidCredentials = "Invalid credentials"
	MsgAccountBlocked     = "Account blocked due to high risk activity. Contact support."
	MsgLoggedIn           = "Logged in successfully"
	MsgLoggedOut          = "Logged out"
	MsgUserRegistered     = "User registered"
	MsgUsernameTaken      = "Username is already taken."
	MsgEmailRegistered    = "Email is already registered."
	MsgInvalidBody        = "Invalid request body"
)

type AuthHandler struct {
	authenticator Authenticator
	issuer        TokenIssuer
	cookie        CookieConfig
	exposeScore   bool
}

func (h *AuthHandler) scoreField(score int) *int {
	if !h.exposeScore {
		return nil
	}
	return &score
}

func validationResponse(ctx *fiber.Ctx, verr *auth.ValidationError) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(fiber.StatusBadRequest, verr.Message, APIErrorDetail{
		Domain:  verr.Field,
		Reason:  "invalid",
		Message: verr.Message,
	}))
}

func (h *AuthHandler) PostLogin(ctx *fiber.Ctx) error {
	var body LoginRequest
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(fiber.StatusBadRequest, MsgInvalidBody))
	}
	identifier := body.Identifier
	if identifier == "" {
		identifier = body.Email
	}

	outcome, err := h.authenticator.Login(ctx.UserContext(), auth.LoginRequest{
		Identifier:    identifier,
		Secret:        body.Password,
		SourceAddress: ctx.IP(),
		Agent:         ctx.Get(fiber.HeaderUserAgent),
	})
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return validationResponse(ctx, verr)
	}
	if err != nil {
		return err
	}

	switch outcome.Decision {
	case auth.DecisionAllow:
	case auth.DecisionDenyRiskBlocked:
		return ctx.Status(fiber.StatusForbidden).JSON(NewDataResponse(BlockedResponse{
			Message:   MsgAccountBlocked,
			RiskScore: h.scoreField(outcome.Risk.Score),
		}))
	default:
		// unknown identity and wrong password must be indistinguishable
		return ctx.Status(fiber.StatusUnauthorized).JSON(NewErrorResponse(fiber.StatusUnauthorized, MsgInvalidCredentials))
	}

	tokenStr, expiresAt, err := h.issuer.Issue(outcome.Profile.ID, string(outcome.Risk.Tier))
	if err != nil {
		return err
	}
	ctx.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    tokenStr,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return ctx.JSON(NewDataResponse(LoginResponse{
		Message:   MsgLoggedIn,
		User:      outcome.Profile,
		RiskScore: h.scoreField(outcome.Risk.Score),
		RiskLevel: string(outcome.Risk.Tier),
	}))
}

func (h *AuthHandler) PostRegister(ctx *fiber.Ctx) error {
	var body RegisterRequest
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(fiber.StatusBadRequest, MsgInvalidBody))
	}

	outcome, err := h.authenticator.Register(ctx.UserContext(), auth.RegisterRequest{
		Username:      strings.ToLower(body.Username),
		Email:         strings.ToLower(body.Email),
		Secret:        body.Password,
		SourceAddress: ctx.IP(),
		Agent:         ctx.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}

	switch outcome.Result {
	case auth.RegisterResultInvalid:
		return validationResponse(ctx, outcome.Validation)
	case auth.RegisterResultConflict:
		msg := MsgEmailRegistered
		if errors.Is(outcome.Conflict, users.ErrUsernameTaken) {
			msg = MsgUsernameTaken
		}
		return ctx.Status(fiber.StatusConflict).JSON(NewErrorResponse(fiber.StatusConflict, msg))
	}
	return ctx.Status(fiber.StatusCreated).JSON(NewDataResponse(RegisterResponse{
		Message: MsgUserRegistered,
		UserID:  outcome.UserID,
	}))
}

func (h *AuthHandler) PostLogout(ctx *fiber.Ctx) error {
	ctx.ClearCookie(h.cookie.Name)
	return ctx.JSON(NewDataResponse(fiber.Map{"message": MsgLoggedOut}))
}

func (h *AuthHandler) GetCheckSession(ctx *fiber.Ctx) error {
	userID := middlewares.GetSessionUserID(ctx)
	assessment, err := h.authenticator.CheckSession(ctx.UserContext(), userID)
	if err != nil {
		slog.Error("Failed to read risk score", "userID", userID, "error", err)
		return err
	}
	return ctx.JSON(NewDataResponse(SessionResponse{
		UserID:          userID,
		IsAuthenticated: true,
		RiskScore:       assessment.Score,
		RiskLevel:       string(assessment.Tier),
	}))
}

func NewAuthHandler(authenticator Authenticator, issuer TokenIssuer, cookie CookieConfig, exposeScore bool) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		issuer:        issuer,
		cookie:        cookie,
		exposeScore:   exposeScore,
	}
}
