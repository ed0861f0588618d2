package ports

import (
	"context"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// RegisterInput describes a new identity.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	SetActive(ctx context.Context, id string, active bool) error
	Get(ctx context.Context, id string) (*domain.Identity, error)
}
