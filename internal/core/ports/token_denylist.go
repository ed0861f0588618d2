package ports

import (
	"context"
	"time"
)

// TokenDenylist records revoked token ids until the token would have expired
// anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Consume atomically revokes tokenID and reports whether this call was
	// the one that revoked it. Used to make refresh tokens single-use.
	Consume(ctx context.Context, tokenID string, until time.Time) (bool, error)
}
