package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const minConsumeTTL = time.Second

// Denylist stores revoked token ids until their natural expiry.
// Key format: denylist:<jti>
type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

// NewDenylist creates a Denylist wrapping the given Redis client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, now: time.Now}
}

// Revoke marks tokenID as revoked until the given time. Tokens that have
// already expired need no entry.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

// Consume revokes tokenID with SETNX so that exactly one caller observes
// true for a given id. Entries live at least minConsumeTTL so a token at the
// edge of its lifetime cannot be redeemed twice.
func (d *Denylist) Consume(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := until.Sub(d.now())
	if ttl < minConsumeTTL {
		ttl = minConsumeTTL
	}
	ok, err := d.client.SetNX(ctx, d.key(tokenID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("denylist consume: %w", err)
	}
	return ok, nil
}

func (d *Denylist) key(tokenID string) string {
	return fmt.Sprintf("denylist:%s", tokenID)
}
