package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
	"github.com/sonbon03/vinhxuan-mono-sub003/pkg/password"
)

// AuthService implements login, refresh, authorization and logout on top of
// the credential store, the token issuer/verifier and the permission matrix.
type AuthService struct {
	store    ports.CredentialStore
	hasher   *password.Hasher
	issuer   *TokenIssuer
	verifier *TokenVerifier
	matrix   *domain.PermissionMatrix
	log      zerolog.Logger

	denylist ports.TokenDenylist
	audit    ports.AuditRecorder
	rotate   bool
	now      Clock
}

// AuthOption configures optional collaborators of AuthService.
type AuthOption func(*AuthService)

// WithDenylist enables server-side revocation. Without it logout is a no-op
// and tokens stay valid until they expire.
func WithDenylist(d ports.TokenDenylist) AuthOption {
	return func(s *AuthService) { s.denylist = d }
}

// WithAuditRecorder sends auth outcomes to r.
func WithAuditRecorder(r ports.AuditRecorder) AuthOption {
	return func(s *AuthService) { s.audit = r }
}

// WithRefreshRotation makes Refresh return a new refresh token and, when a
// denylist is configured, revoke the presented one.
func WithRefreshRotation(enabled bool) AuthOption {
	return func(s *AuthService) { s.rotate = enabled }
}

// WithClock sets the time source used for audit timestamps.
func WithClock(now Clock) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	store ports.CredentialStore,
	hasher *password.Hasher,
	issuer *TokenIssuer,
	verifier *TokenVerifier,
	matrix *domain.PermissionMatrix,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		matrix:   matrix,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates email/password and returns a fresh token pair. Unknown
// email, inactive account and wrong password all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, pass string) (*domain.AuthResponse, error) {
	email = domain.NormalizeEmail(email)

	identity, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		s.hasher.CheckDummy(pass)
		s.record(domain.AuthEvent{Type: domain.EventLoginFailed, Email: email, Reason: domain.ReasonUnknownEmail})
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("credential lookup failed")
		s.record(domain.AuthEvent{Type: domain.EventLoginFailed, Email: email, Reason: domain.ReasonStoreError})
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	// Always compare so inactive accounts cost the same as active ones.
	passwordOK := s.hasher.Check(pass, identity.PasswordHash)

	switch {
	case !identity.Active:
		s.record(domain.AuthEvent{Type: domain.EventLoginFailed, Subject: identity.ID, Email: email, Reason: domain.ReasonAccountInactive})
		return nil, domain.ErrInvalidCredentials
	case !passwordOK:
		s.record(domain.AuthEvent{Type: domain.EventLoginFailed, Subject: identity.ID, Email: email, Reason: domain.ReasonInvalidPassword})
		return nil, domain.ErrInvalidCredentials
	}

	access, _, err := s.issuer.Issue(identity, domain.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, _, err := s.issuer.Issue(identity, domain.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.record(domain.AuthEvent{Type: domain.EventLoginSucceeded, Subject: identity.ID, Email: email})
	s.log.Info().Str("user_id", identity.ID).Str("role", string(identity.Role)).Msg("login succeeded")

	return &domain.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         identity.Summary(),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The identity
// is re-read so role and status changes since issuance take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	claims, err := s.verifier.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Reason: domain.ReasonInvalidToken})
		return nil, err
	}

	if err := s.checkRevoked(ctx, claims); err != nil {
		s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Subject: claims.Subject, Reason: reasonFor(err)})
		return nil, err
	}

	identity, err := s.store.FindByID(ctx, claims.Subject)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Subject: claims.Subject, Reason: domain.ReasonAccountInactive})
		return nil, domain.ErrAccountInactive
	}
	if err != nil {
		s.log.Error().Err(err).Str("user_id", claims.Subject).Msg("credential lookup failed")
		s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Subject: claims.Subject, Reason: domain.ReasonStoreError})
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if !identity.Active {
		s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Subject: identity.ID, Email: identity.Email, Reason: domain.ReasonAccountInactive})
		return nil, domain.ErrAccountInactive
	}

	// A rotated refresh token is single-use: claim it before issuing anything.
	if s.rotate && s.denylist != nil {
		consumed, err := s.denylist.Consume(ctx, claims.TokenID, claims.ExpiresAt)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", identity.ID).Msg("failed to consume refresh token")
			s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Subject: identity.ID, Email: identity.Email, Reason: domain.ReasonStoreError})
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if !consumed {
			s.log.Warn().Str("user_id", identity.ID).Str("jti", claims.TokenID).Msg("refresh token replayed")
			s.record(domain.AuthEvent{Type: domain.EventRefreshFailed, Subject: identity.ID, Email: identity.Email, Reason: domain.ReasonRevoked})
			return nil, domain.ErrTokenRevoked
		}
	}

	access, _, err := s.issuer.Issue(identity, domain.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	next := refreshToken
	if s.rotate {
		next, _, err = s.issuer.Issue(identity, domain.TokenRefresh)
		if err != nil {
			return nil, fmt.Errorf("refresh: %w", err)
		}
	}

	s.record(domain.AuthEvent{Type: domain.EventRefreshSucceeded, Subject: identity.ID, Email: identity.Email})

	return &domain.AuthResponse{
		AccessToken:  access,
		RefreshToken: next,
		User:         identity.Summary(),
	}, nil
}

// Authenticate verifies an access token and returns its claims. Any
// verification failure is wrapped in ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Claims, error) {
	claims, err := s.verifier.Verify(accessToken, domain.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		if errors.Is(err, domain.ErrTokenRevoked) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
		}
		return nil, err
	}
	return claims, nil
}

// Authorize authenticates accessToken and checks that its role holds perm.
func (s *AuthService) Authorize(ctx context.Context, accessToken string, perm domain.Permission) (*domain.Claims, error) {
	claims, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !s.matrix.HasPermission(claims.Role, perm) {
		s.record(domain.AuthEvent{
			Type:       domain.EventAccessDenied,
			Subject:    claims.Subject,
			Email:      claims.Email,
			Reason:     domain.ReasonForbidden,
			Permission: perm,
		})
		return nil, domain.ErrForbidden
	}
	return claims, nil
}

// Logout revokes the presented tokens when a denylist is configured. Tokens
// that no longer verify are skipped, so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, in ports.LogoutInput) error {
	var subject string
	if s.denylist != nil {
		for _, t := range []struct {
			raw  string
			kind domain.TokenKind
		}{
			{in.AccessToken, domain.TokenAccess},
			{in.RefreshToken, domain.TokenRefresh},
		} {
			if t.raw == "" {
				continue
			}
			claims, err := s.verifier.Verify(t.raw, t.kind)
			if err != nil {
				s.log.Debug().Err(err).Str("kind", string(t.kind)).Msg("logout: skipping unverifiable token")
				continue
			}
			if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
			}
			subject = claims.Subject
		}
	}

	s.record(domain.AuthEvent{Type: domain.EventLogout, Subject: subject})
	return nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *domain.Claims) error {
	if s.denylist == nil {
		return nil
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", claims.Subject).Msg("denylist lookup failed")
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if revoked {
		return domain.ErrTokenRevoked
	}
	return nil
}

func (s *AuthService) record(event domain.AuthEvent) {
	if s.audit == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	s.audit.Record(event)
}

func reasonFor(err error) string {
	if errors.Is(err, domain.ErrTokenRevoked) {
		return domain.ReasonRevoked
	}
	return domain.ReasonStoreError
}
