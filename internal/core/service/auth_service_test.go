package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
)

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", resp)
	}
	if resp.User != (domain.UserSummary{ID: "u1", Email: "a@x.com", FullName: "Alice Nguyen", Role: domain.RoleCustomer}) {
		t.Fatalf("unexpected user summary: %+v", resp.User)
	}

	claims, err := f.verifier.Verify(resp.AccessToken, domain.TokenAccess)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.Subject != "u1" || claims.UserID != "u1" || claims.Role != domain.RoleCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := f.verifier.Verify(resp.RefreshToken, domain.TokenRefresh); err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
	if got := f.audit.last(); got.Type != domain.EventLoginSucceeded || got.Subject != "u1" {
		t.Fatalf("unexpected audit event: %+v", got)
	}
}

func TestAuthService_Login_NormalizesEmail(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.Login(context.Background(), "  A@X.COM ", "Secret123"); err != nil {
		t.Fatalf("expected normalized email to match, got %v", err)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)

	_, wrongPass := f.svc.Login(context.Background(), "a@x.com", "wrong")
	if wrongPass != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongPass)
	}
	if got := f.audit.last().Reason; got != domain.ReasonInvalidPassword {
		t.Fatalf("expected audit reason %s, got %s", domain.ReasonInvalidPassword, got)
	}

	_, unknown := f.svc.Login(context.Background(), "ghost@x.com", "Secret123")
	if unknown != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", unknown)
	}
	if got := f.audit.last().Reason; got != domain.ReasonUnknownEmail {
		t.Fatalf("expected audit reason %s, got %s", domain.ReasonUnknownEmail, got)
	}

	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPass, unknown)
	}
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.users["u1"].Active = false

	if _, err := f.svc.Login(context.Background(), "a@x.com", "Secret123"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := f.audit.last().Reason; got != domain.ReasonAccountInactive {
		t.Fatalf("expected audit reason %s, got %s", domain.ReasonAccountInactive, got)
	}
}

func TestAuthService_Login_StoreUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.findErr = errors.New("connection refused")

	_, err := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Fatalf("expected store failure to be retryable")
	}
}

func TestAuthService_Refresh_PicksUpIdentityChanges(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	f.repo.users["u1"].Role = domain.RoleStaff
	f.clock.Advance(20 * time.Minute)

	refreshed, err := f.svc.Refresh(context.Background(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	claims, err := f.verifier.Verify(refreshed.AccessToken, domain.TokenAccess)
	if err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if claims.Role != domain.RoleStaff {
		t.Fatalf("expected refreshed role STAFF, got %s", claims.Role)
	}
	if refreshed.User.Role != domain.RoleStaff {
		t.Fatalf("expected user summary to reflect new role, got %+v", refreshed.User)
	}
	if refreshed.RefreshToken != resp.RefreshToken {
		t.Fatalf("expected refresh token to be reused without rotation")
	}
}

func TestAuthService_Refresh_DeactivatedAccount(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	f.repo.users["u1"].Active = false

	if _, err := f.verifier.Verify(resp.RefreshToken, domain.TokenRefresh); err != nil {
		t.Fatalf("refresh token should still verify: %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); err != domain.ErrAccountInactive {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthService_Refresh_DeletedAccount(t *testing.T) {
	f := newAuthFixture(t)

	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	delete(f.repo.users, "u1")

	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); err != domain.ErrAccountInactive {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)

	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	if _, err := f.svc.Refresh(context.Background(), resp.AccessToken); !errors.Is(err, domain.ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}
}

func TestAuthService_Refresh_Expired(t *testing.T) {
	f := newAuthFixture(t)

	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	f.clock.Advance(7 * 24 * time.Hour)

	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthService_Refresh_RotationRevokesPresentedToken(t *testing.T) {
	deny := newStubDenylist()
	f := newAuthFixture(t, WithDenylist(deny), WithRefreshRotation(true))

	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	rotated, err := f.svc.Refresh(context.Background(), resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken == resp.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if len(deny.revoked) != 1 {
		t.Fatalf("expected presented refresh token to be revoked, got %v", deny.revoked)
	}

	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); err != domain.ErrTokenRevoked {
		t.Fatalf("expected ErrTokenRevoked on replay, got %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("rotated refresh token should work: %v", err)
	}
}

func TestAuthService_Refresh_ConcurrentReplayRedeemsOnce(t *testing.T) {
	deny := newStubDenylist()
	f := newAuthFixture(t, WithDenylist(deny), WithRefreshRotation(true))

	resp, err := f.svc.Login(context.Background(), "a@x.com", "Secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Both refreshes pass the revocation check before either proceeds.
	const callers = 2
	gate := &sync.WaitGroup{}
	gate.Add(callers)
	f.repo.findGate = gate

	var wg sync.WaitGroup
	results := make([]*domain.AuthResponse, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Refresh(context.Background(), resp.RefreshToken)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil && results[i] != nil:
			succeeded++
		case errors.Is(errs[i], domain.ErrTokenRevoked):
		default:
			t.Fatalf("caller %d: unexpected error %v", i, errs[i])
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one refresh to succeed, got %d (errs=%v)", succeeded, errs)
	}
}

func TestAuthService_Refresh_StoreUnavailableIsAudited(t *testing.T) {
	f := newAuthFixture(t)
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	f.repo.findErr = errors.New("connection refused")

	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	last := f.audit.last()
	if last.Type != domain.EventRefreshFailed || last.Reason != domain.ReasonStoreError || last.Subject != "u1" {
		t.Fatalf("expected refresh failure audit event, got %+v", last)
	}
}

func TestAuthService_Authorize(t *testing.T) {
	f := newAuthFixture(t)
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	claims, err := f.svc.Authorize(context.Background(), resp.AccessToken, domain.PermReadServices)
	if err != nil {
		t.Fatalf("expected read:services to be allowed, got %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := f.svc.Authorize(context.Background(), resp.AccessToken, domain.PermWriteRecords); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.audit.last(); got.Type != domain.EventAccessDenied || got.Permission != domain.PermWriteRecords {
		t.Fatalf("unexpected audit event: %+v", got)
	}
}

func TestAuthService_Authorize_Unauthenticated(t *testing.T) {
	f := newAuthFixture(t)
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	_, err := f.svc.Authorize(context.Background(), resp.RefreshToken, domain.PermReadServices)
	if !errors.Is(err, domain.ErrUnauthenticated) || !errors.Is(err, domain.ErrWrongTokenKind) {
		t.Fatalf("expected Unauthenticated wrapping WrongKind, got %v", err)
	}

	_, err = f.svc.Authorize(context.Background(), "not-a-token", domain.PermReadServices)
	if !errors.Is(err, domain.ErrUnauthenticated) || !errors.Is(err, domain.ErrMalformedToken) {
		t.Fatalf("expected Unauthenticated wrapping Malformed, got %v", err)
	}

	f.clock.Advance(15 * time.Minute)
	_, err = f.svc.Authorize(context.Background(), resp.AccessToken, domain.PermReadServices)
	if !errors.Is(err, domain.ErrUnauthenticated) || !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected Unauthenticated wrapping Expired, got %v", err)
	}
}

func TestAuthService_Authorize_AdminWildcard(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.users["u1"].Role = domain.RoleAdmin
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	if _, err := f.svc.Authorize(context.Background(), resp.AccessToken, "anything:at-all"); err != nil {
		t.Fatalf("expected admin to be allowed, got %v", err)
	}
}

func TestAuthService_Logout_StatelessWithoutDenylist(t *testing.T) {
	f := newAuthFixture(t)
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	if err := f.svc.Logout(context.Background(), ports.LogoutInput{AccessToken: resp.AccessToken}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.svc.Authorize(context.Background(), resp.AccessToken, domain.PermReadServices); err != nil {
		t.Fatalf("token should stay valid without a denylist: %v", err)
	}
}

func TestAuthService_Logout_RevokesTokens(t *testing.T) {
	deny := newStubDenylist()
	f := newAuthFixture(t, WithDenylist(deny))
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	in := ports.LogoutInput{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := f.svc.Logout(context.Background(), in); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(deny.revoked) != 2 {
		t.Fatalf("expected both tokens revoked, got %v", deny.revoked)
	}

	_, err := f.svc.Authorize(context.Background(), resp.AccessToken, domain.PermReadServices)
	if !errors.Is(err, domain.ErrUnauthenticated) || !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected revoked access token to be rejected, got %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); err != domain.ErrTokenRevoked {
		t.Fatalf("expected revoked refresh token to be rejected, got %v", err)
	}

	// A second logout with the same tokens is harmless.
	if err := f.svc.Logout(context.Background(), in); err != nil {
		t.Fatalf("repeated logout failed: %v", err)
	}
}

func TestAuthService_Logout_IgnoresInvalidTokens(t *testing.T) {
	deny := newStubDenylist()
	f := newAuthFixture(t, WithDenylist(deny))

	if err := f.svc.Logout(context.Background(), ports.LogoutInput{AccessToken: "garbage"}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(deny.revoked) != 0 {
		t.Fatalf("expected nothing revoked, got %v", deny.revoked)
	}
}

func TestAuthService_DenylistUnavailable(t *testing.T) {
	deny := newStubDenylist()
	f := newAuthFixture(t, WithDenylist(deny))
	resp, _ := f.svc.Login(context.Background(), "a@x.com", "Secret123")

	deny.err = errors.New("redis timeout")

	_, err := f.svc.Authorize(context.Background(), resp.AccessToken, domain.PermReadServices)
	if !errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected bare ErrStoreUnavailable, got %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), resp.RefreshToken); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
