package handler

import (
	"time"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authorizeRequest struct {
	Permission string `json:"permission" validate:"required,max=64"`
}

type authorizeResponse struct {
	Allowed         bool        `json:"allowed"`
	Subject         string      `json:"subject"`
	Role            domain.Role `json:"role"`
	OwnershipScoped bool        `json:"ownershipScoped"`
}

type meResponse struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	Role        domain.Role         `json:"role"`
	Permissions []domain.Permission `json:"permissions"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

// --- Users ---

type createUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName" validate:"required,max=255"`
	Role     string `json:"role"     validate:"required,role"`
}

type setStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
}

func toUserResponse(i *domain.Identity) userResponse {
	return userResponse{
		ID:        i.ID,
		Email:     i.Email,
		FullName:  i.FullName,
		Role:      i.Role,
		Active:    i.Active,
		CreatedAt: i.CreatedAt,
	}
}
