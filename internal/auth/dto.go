// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type EnrollRequest struct {
	DeviceID string `json:"device_id" validate:"required,min=8,max=128"`
	Secret   string `json:"secret"    validate:"omitempty,min=16,max=256"`
	Platform string `json:"platform"  validate:"omitempty,max=32"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type EnrollResponse struct {
	DeviceID string `json:"device_id"`
	// Secret is returned once, when the server generated it.
	Secret string        `json:"secret,omitempty"`
	Role   string        `json:"role"`
	Tokens TokenResponse `json:"tokens"`
}
