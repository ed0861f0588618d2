package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// TokenVerifier checks signature, expiry and kind of presented tokens. It
// never touches a store.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenVerifier(cfg TokenConfig, now Clock) (*TokenVerifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token verifier: signing secret is required")
	}
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

// Verify decodes token and checks it is a valid token of expectedKind. A token
// whose expiry equals the current time is expired.
func (v *TokenVerifier) Verify(token string, expectedKind domain.TokenKind) (*domain.Claims, error) {
	var tc tokenClaims
	_, err := v.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if tc.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrMalformedToken)
	}
	switch tc.Kind {
	case domain.TokenAccess, domain.TokenRefresh:
	default:
		return nil, fmt.Errorf("%w: missing kind", domain.ErrMalformedToken)
	}
	if tc.Kind != expectedKind {
		return nil, fmt.Errorf("%w: got %s, want %s", domain.ErrWrongTokenKind, tc.Kind, expectedKind)
	}
	if tc.Kind == domain.TokenAccess && tc.Role == "" {
		return nil, fmt.Errorf("%w: missing role", domain.ErrMalformedToken)
	}

	return tc.toDomain(), nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}
}
