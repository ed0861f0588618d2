package ports

import (
	"context"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// CredentialStore is the read side of identity persistence consumed by the
// auth service. An absent identity is reported as domain.ErrIdentityNotFound;
// any other error is an I/O failure.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
}

// IdentityRepository adds the writes owned by user management.
type IdentityRepository interface {
	CredentialStore
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	SetActive(ctx context.Context, id string, active bool) error
}
