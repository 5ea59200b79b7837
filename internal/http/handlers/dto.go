package handlers

import (
	"time"

	"github.com/pribylovaa/snapfood/internal/models"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type analyzeRequest struct {
	Image           string `json:"image" validate:"required"`
	HealthCondition string `json:"healthCondition" validate:"max=200"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func userFrom(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: utc(u.CreatedAt),
	}
}

type authResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type refreshResponse struct {
	AccessToken string       `json:"accessToken"`
	User        userResponse `json:"user"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

type scanResponse struct {
	ScanID          string           `json:"scanId"`
	Food            string           `json:"food"`
	Confidence      float64          `json:"confidence"`
	Nutrients       models.Nutrients `json:"nutrients"`
	Calories        int              `json:"calories"`
	Advice          string           `json:"advice"`
	Substitute      string           `json:"substitute"`
	HealthCondition *string          `json:"healthCondition"`
	RiskLevel       *string          `json:"riskLevel"`
	RiskScore       *float64         `json:"riskScore,omitempty"`
	ScannedAt       time.Time        `json:"scannedAt"`
}

func scanFrom(s *models.Scan, riskScore *float64) scanResponse {
	nutrients := s.Nutrients
	if nutrients == nil {
		nutrients = models.Nutrients{}
	}

	return scanResponse{
		ScanID:          s.ID.String(),
		Food:            s.DishName,
		Confidence:      s.Confidence,
		Nutrients:       nutrients,
		Calories:        s.Calories,
		Advice:          s.Advice,
		Substitute:      s.Substitute,
		HealthCondition: optional(s.HealthCondition),
		RiskLevel:       optional(s.RiskLevel),
		RiskScore:       riskScore,
		ScannedAt:       utc(s.ScannedAt),
	}
}

type historyResponse struct {
	Result []scanResponse `json:"result"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
