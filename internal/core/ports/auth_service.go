package ports

import (
	"context"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// LogoutInput carries the tokens a client is discarding. Either may be empty.
type LogoutInput struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error)
	Authenticate(ctx context.Context, accessToken string) (*domain.Claims, error)
	Authorize(ctx context.Context, accessToken string, perm domain.Permission) (*domain.Claims, error)
	Logout(ctx context.Context, in LogoutInput) error
}
