// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateMeRequest struct {
	Name  *string `json:"name,omitempty"  validate:"omitempty,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Type  *string `json:"type,omitempty"  validate:"omitempty,oneof=Entrant Organizer Administrator entrant organizer administrator"`
}

type RegisterRequest struct {
	EventID string `json:"event_id" validate:"required,max=128"`
}

type ScanRequest struct {
	Payload string `json:"payload" validate:"required,max=512"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

type SetTypeRequest struct {
	Type string `json:"type" validate:"required,oneof=Entrant Organizer Administrator entrant organizer administrator"`
}

type MergeRequest struct {
	SourceID string `json:"source_id" validate:"required,max=128"`
}

type RegistrationResponse struct {
	EventID      string     `json:"event_id"`
	Status       string     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	SelectedAt   *time.Time `json:"selected_at,omitempty"`
}

type UserResponse struct {
	DeviceID      string                 `json:"device_id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	Type          string                 `json:"type"`
	Registrations []RegistrationResponse `json:"registrations"`
}

type Stats struct {
	TotalUsers            int            `json:"total_users"`
	UsersByType           map[string]int `json:"users_by_type"`
	TotalRegistrations    int            `json:"total_registrations"`
	RegistrationsByStatus map[string]int `json:"registrations_by_status"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Type     string `json:"type"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToRegistrationResponse(e RegisteredEvent) RegistrationResponse {
	resp := RegistrationResponse{
		EventID:      e.EventID,
		Status:       e.Status.String(),
		RegisteredAt: e.RegisteredAt.UTC(),
	}
	if e.SelectedAt != nil {
		t := e.SelectedAt.UTC()
		resp.SelectedAt = &t
	}
	return resp
}

func ToRegistrationResponseList(regs []RegisteredEvent) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for _, e := range regs {
		out = append(out, ToRegistrationResponse(e))
	}
	return out
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		DeviceID:      u.DeviceID(),
		Name:          u.Name(),
		Email:         u.Email(),
		Phone:         u.Phone(),
		Type:          u.Type().String(),
		Registrations: ToRegistrationResponseList(u.Registrations()),
	}
}

func ToUserResponseList(users []*User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserResponse(u))
	}
	return out
}
