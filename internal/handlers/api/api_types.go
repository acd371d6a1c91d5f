package api

import (
	"time"

	"github.com/khanghh/riskauth/internal/audit"
	"github.com/khanghh/riskauth/internal/auth"
)

const APIVersion = "1.0"

type APIResponse struct {
	APIVersion string        `json:"apiVersion"`
	Data       any           `json:"data,omitempty"`
	Error      *APIErrorInfo `json:"error,omitempty"`
}

type APIErrorInfo struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Errors  []APIErrorDetail `json:"errors,omitempty"`
}

type APIErrorDetail struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func NewDataResponse(data any) APIResponse {
	return APIResponse{APIVersion: APIVersion, Data: data}
}

func NewErrorResponse(code int, message string, details ...APIErrorDetail) APIResponse {
	return APIResponse{
		APIVersion: APIVersion,
		Error: &APIErrorInfo{
			Code:    code,
			Message: message,
			Errors:  details,
		},
	}
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message   string              `json:"message"`
	User      *auth.PublicProfile `json:"user"`
	RiskScore *int                `json:"riskScore,omitempty"`
	RiskLevel string              `json:"riskLevel"`
}

type BlockedResponse struct {
	Message   string `json:"message"`
	RiskScore *int   `json:"riskScore,omitempty"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  uint   `json:"userId"`
}

type SessionResponse struct {
	UserID          uint   `json:"userId"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	RiskScore       int    `json:"riskScore"`
	RiskLevel       string `json:"riskLevel"`
}

type StatsResponse struct {
	TotalUsers    int64 `json:"totalUsers"`
	HighRiskUsers int64 `json:"highRiskUsers"`
	TotalAttacks  int64 `json:"totalAttacks"`
}

type SecurityEventResponse struct {
	ID          uint64    `json:"id"`
	UserID      *uint     `json:"userId"`
	EventType   string    `json:"eventType"`
	IPAddress   string    `json:"ipAddress"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type RiskUserResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	RiskScore   int       `json:"riskScore"`
	RiskLevel   string    `json:"riskLevel"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// AttackDistributionResponse is shaped for chart libraries: labels[i] occurred data[i] times.
type AttackDistributionResponse struct {
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

type RiskEventRequest struct {
	EventType string `json:"eventType"`
}

type RiskEventResponse struct {
	UserID    uint   `json:"userId"`
	EventType string `json:"eventType"`
	RiskScore int    `json:"riskScore"`
	RiskLevel string `json:"riskLevel"`
}

func distributionResponse(rows []audit.TypeCount) AttackDistributionResponse {
	resp := AttackDistributionResponse{
		Labels: make([]string, 0, len(rows)),
		Data:   make([]int64, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Labels = append(resp.Labels, row.EventType)
		resp.Data = append(resp.Data, row.Count)
	}
	return resp
}
