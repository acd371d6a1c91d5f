package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/riskauth/internal/audit"
	"github.com/khanghh/riskauth/internal/auth"
	"github.com/khanghh/riskauth/internal/risk"
	"github.com/khanghh/riskauth/internal/users"
	"github.com/khanghh/riskauth/params"
)

type AdminHandler struct {
	authenticator Authenticator
	userService   UserService
	riskReporter  risk.Reporter
	auditRepo     audit.Repository
}

func (h *AdminHandler) GetStats(ctx *fiber.Ctx) error {
	totalUsers, err := h.userService.CountUsers(ctx.UserContext())
	if err != nil {
		return err
	}
	highRisk, err := h.riskReporter.CountAbove(ctx.UserContext(), params.AdminHighRiskScore)
	if err != nil {
		return err
	}
	attacks, err := h.auditRepo.CountAttacks(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(NewDataResponse(StatsResponse{
		TotalUsers:    totalUsers,
		HighRiskUsers: highRisk,
		TotalAttacks:  attacks,
	}))
}

func (h *AdminHandler) GetEvents(ctx *fiber.Ctx) error {
	events, err := h.auditRepo.RecentEvents(ctx.UserContext(), params.AdminEventsLimit)
	if err != nil {
		return err
	}
	resp := make([]SecurityEventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, SecurityEventResponse{
			ID:          event.ID,
			UserID:      event.UserID,
			EventType:   event.EventType,
			IPAddress:   event.IPAddress,
			Description: event.Description,
			Timestamp:   event.CreatedAt,
		})
	}
	return ctx.JSON(NewDataResponse(resp))
}

func (h *AdminHandler) GetRiskUsers(ctx *fiber.Ctx) error {
	profiles, err := h.riskReporter.TopProfiles(ctx.UserContext(), params.AdminRiskUsersLimit)
	if err != nil {
		return err
	}
	resp := make([]RiskUserResponse, 0, len(profiles))
	for _, profile := range profiles {
		user, err := h.userService.GetUserByID(ctx.UserContext(), profile.UserID)
		if errors.Is(err, users.ErrUserNotFound) {
			slog.Warn("Risk profile without account", "userID", profile.UserID)
			continue
		}
		if err != nil {
			return err
		}
		resp = append(resp, RiskUserResponse{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			RiskScore:   profile.Score,
			RiskLevel:   profile.Tier,
			LastUpdated: profile.UpdatedAt,
		})
	}
	return ctx.JSON(NewDataResponse(resp))
}

func (h *AdminHandler) GetAttackDistribution(ctx *fiber.Ctx) error {
	rows, err := h.auditRepo.CountByType(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(NewDataResponse(distributionResponse(rows)))
}

func (h *AdminHandler) PostRiskEvent(ctx *fiber.Ctx) error {
	userID, err := ctx.ParamsInt("id")
	if err != nil || userID <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(fiber.StatusBadRequest, "Invalid user id"))
	}
	var body RiskEventRequest
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(fiber.StatusBadRequest, MsgInvalidBody))
	}

	assessment, err := h.authenticator.ApplyRiskEvent(ctx.UserContext(), uint(userID), risk.EventType(body.EventType), ctx.IP())
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationResponse(ctx, verr)
	case errors.Is(err, users.ErrUserNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(NewErrorResponse(fiber.StatusNotFound, "User not found"))
	case err != nil:
		return err
	}
	return ctx.JSON(NewDataResponse(RiskEventResponse{
		UserID:    uint(userID),
		EventType: body.EventType,
		RiskScore: assessment.Score,
		RiskLevel: string(assessment.Tier),
	}))
}

func NewAdminHandler(authenticator Authenticator, userService UserService, riskReporter risk.Reporter, auditRepo audit.Repository) *AdminHandler {
	return &AdminHandler{
		authenticator: authenticator,
		userService:   userService,
		riskReporter:  riskReporter,
		auditRepo:     auditRepo,
	}
}
