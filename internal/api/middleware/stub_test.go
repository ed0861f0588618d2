package middleware

import (
	"context"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
)

type stubAuthService struct {
	authenticateFn func(ctx context.Context, token string) (*domain.Claims, error)
	authorizeFn    func(ctx context.Context, token string, perm domain.Permission) (*domain.Claims, error)
}

func (s *stubAuthService) Login(context.Context, string, string) (*domain.AuthResponse, error) {
	return nil, nil
}

func (s *stubAuthService) Refresh(context.Context, string) (*domain.AuthResponse, error) {
	return nil, nil
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*domain.Claims, error) {
	return s.authenticateFn(ctx, token)
}

func (s *stubAuthService) Authorize(ctx context.Context, token string, perm domain.Permission) (*domain.Claims, error) {
	return s.authorizeFn(ctx, token, perm)
}

func (s *stubAuthService) Logout(context.Context, ports.LogoutInput) error {
	return nil
}
