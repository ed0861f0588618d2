package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Clock returns the current time. Issuer and verifier must share one.
type Clock func() time.Time

// TokenConfig holds the signing settings shared by issuer and verifier.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c TokenConfig) withDefaults() TokenConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = defaultRefreshTTL
	}
	return c
}

// tokenClaims is the wire form of domain.Claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string           `json:"userId,omitempty"`
	Email  string           `json:"email,omitempty"`
	Role   domain.Role      `json:"role,omitempty"`
	Kind   domain.TokenKind `json:"kind"`
}

func (tc *tokenClaims) toDomain() *domain.Claims {
	c := &domain.Claims{
		Subject: tc.Subject,
		UserID:  tc.UserID,
		Email:   tc.Email,
		Role:    tc.Role,
		Kind:    tc.Kind,
		TokenID: tc.ID,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c
}

// TokenIssuer signs access and refresh tokens with HS256.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        Clock
}

func NewTokenIssuer(cfg TokenConfig, now Clock) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token issuer: signing secret is required")
	}
	if now == nil {
		now = time.Now
	}
	cfg = cfg.withDefaults()
	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

// Issue signs a token of the given kind for identity. Refresh tokens carry
// only the subject so a role or email change is picked up on refresh.
func (i *TokenIssuer) Issue(identity *domain.Identity, kind domain.TokenKind) (string, *domain.Claims, error) {
	if identity == nil || identity.ID == "" {
		return "", nil, fmt.Errorf("issue token: %w", domain.ErrInvalidIdentity)
	}

	now := i.now()
	ttl := i.accessTTL
	switch kind {
	case domain.TokenAccess:
	case domain.TokenRefresh:
		ttl = i.refreshTTL
	default:
		return "", nil, fmt.Errorf("issue token: unknown kind %q", kind)
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Kind: kind,
	}
	if kind == domain.TokenAccess {
		claims.UserID = identity.ID
		claims.Email = identity.Email
		claims.Role = identity.Role
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, claims.toDomain(), nil
}
