package dto

import (
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// RegisterRequest creates an organization and its owner.
type RegisterRequest struct {
	OrganizationName string `json:"organization_name" validate:"required,max=200"`
	Name             string `json:"name" validate:"required,max=200"`
	Email            string `json:"email" validate:"required,email,max=320"`
	Password         string `json:"password" validate:"required,max=256"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload for POST /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=256"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// CreateUserRequest adds an account to the caller's org.
type CreateUserRequest struct {
	Email    string      `json:"email" validate:"required,email,max=320"`
	Name     string      `json:"name" validate:"required,max=200"`
	Password string      `json:"password" validate:"required,max=256"`
	Role     domain.Role `json:"role" validate:"required,oneof=viewer analyst manager admin owner"`
}

// UpdateUserRequest changes name, role or status.
type UpdateUserRequest struct {
	Name   *string            `json:"name" validate:"omitempty,max=200"`
	Role   *domain.Role       `json:"role" validate:"omitempty,oneof=viewer analyst manager admin owner"`
	Status *domain.UserStatus `json:"status" validate:"omitempty,oneof=active disabled"`
}
