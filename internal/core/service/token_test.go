package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

func testIdentity() *domain.Identity {
	return &domain.Identity{ID: "u1", Email: "a@x.com", FullName: "Alice Nguyen", Role: domain.RoleCustomer, Active: true}
}

func TestTokenIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(TokenConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewTokenVerifier(TokenConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestTokenIssuer_DefaultTTLs(t *testing.T) {
	clock := newFakeClock()
	issuer, err := NewTokenIssuer(TokenConfig{Secret: testSecret}, clock.Now)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	_, access, err := issuer.Issue(testIdentity(), domain.TokenAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := access.ExpiresAt.Sub(access.IssuedAt); got != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", got)
	}

	_, refresh, err := issuer.Issue(testIdentity(), domain.TokenRefresh)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := refresh.ExpiresAt.Sub(refresh.IssuedAt); got != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %v", got)
	}
}

func TestTokenIssuer_RejectsUnknownKindAndEmptyIdentity(t *testing.T) {
	issuer, _ := newTestTokens(t, newFakeClock())

	if _, _, err := issuer.Issue(testIdentity(), "session"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, _, err := issuer.Issue(&domain.Identity{}, domain.TokenAccess); !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	issuer, verifier := newTestTokens(t, clock)
	identity := testIdentity()

	token, issued, err := issuer.Issue(identity, domain.TokenAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := verifier.Verify(token, domain.TokenAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.TokenID != issued.TokenID || !claims.IssuedAt.Equal(issued.IssuedAt) || !claims.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("decoded claims %+v differ from issued %+v", claims, issued)
	}
	if claims.Subject != identity.ID || claims.UserID != identity.ID || claims.Email != identity.Email || claims.Role != identity.Role {
		t.Fatalf("claims do not match identity snapshot: %+v", claims)
	}
	if claims.Kind != domain.TokenAccess || claims.TokenID == "" {
		t.Fatalf("unexpected kind or jti: %+v", claims)
	}
}

func TestTokenIssuer_RefreshCarriesMinimalClaims(t *testing.T) {
	issuer, verifier := newTestTokens(t, newFakeClock())

	token, _, err := issuer.Issue(testIdentity(), domain.TokenRefresh)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	raw := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, raw); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	for _, key := range []string{"email", "role", "userId"} {
		if _, ok := raw[key]; ok {
			t.Fatalf("refresh token must not carry %q: %v", key, raw)
		}
	}

	claims, err := verifier.Verify(token, domain.TokenRefresh)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "u1" || claims.Kind != domain.TokenRefresh {
		t.Fatalf("unexpected refresh claims: %+v", claims)
	}
}

func TestTokenVerifier_WrongKind(t *testing.T) {
	issuer, verifier := newTestTokens(t, newFakeClock())

	access, _, _ := issuer.Issue(testIdentity(), domain.TokenAccess)
	refresh, _, _ := issuer.Issue(testIdentity(), domain.TokenRefresh)

	if _, err := verifier.Verify(refresh, domain.TokenAccess); !errors.Is(err, domain.ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind for refresh-as-access, got %v", err)
	}
	if _, err := verifier.Verify(access, domain.TokenRefresh); !errors.Is(err, domain.ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind for access-as-refresh, got %v", err)
	}
}

func TestTokenVerifier_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	issuer, verifier := newTestTokens(t, clock)

	token, issued, err := issuer.Issue(testIdentity(), domain.TokenAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.t = issued.ExpiresAt.Add(-time.Second)
	if _, err := verifier.Verify(token, domain.TokenAccess); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}

	clock.t = issued.ExpiresAt
	if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exactly exp, got %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after exp, got %v", err)
	}
}

func TestTokenVerifier_InvalidSignature(t *testing.T) {
	clock := newFakeClock()
	_, verifier := newTestTokens(t, clock)
	other, err := NewTokenIssuer(TokenConfig{Secret: "another-secret"}, clock.Now)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, _, _ := other.Issue(testIdentity(), domain.TokenAccess)
	if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestTokenVerifier_RejectsOtherAlgorithms(t *testing.T) {
	clock := newFakeClock()
	_, verifier := newTestTokens(t, clock)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
		Role: domain.RoleAdmin,
		Kind: domain.TokenAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for HS512 token, got %v", err)
	}
}

func TestTokenVerifier_Malformed(t *testing.T) {
	clock := newFakeClock()
	issuer, verifier := newTestTokens(t, clock)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrMalformedToken) {
			t.Fatalf("expected ErrMalformedToken for %q, got %v", token, err)
		}
	}

	// Tampering with the payload segment breaks the signature.
	token, _, _ := issuer.Issue(testIdentity(), domain.TokenAccess)
	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "AA"
	if _, err := verifier.Verify(strings.Join(parts, "."), domain.TokenAccess); err == nil {
		t.Fatalf("expected tampered token to fail")
	}
}

func TestTokenVerifier_MissingClaims(t *testing.T) {
	clock := newFakeClock()
	_, verifier := newTestTokens(t, clock)
	exp := jwt.NewNumericDate(clock.Now().Add(time.Hour))

	cases := map[string]tokenClaims{
		"no subject": {RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}, Role: domain.RoleStaff, Kind: domain.TokenAccess},
		"no role":    {RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: exp}, Kind: domain.TokenAccess},
		"no kind":    {RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: exp}, Role: domain.RoleStaff},
		"no exp":     {RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Role: domain.RoleStaff, Kind: domain.TokenAccess},
	}
	for name, claims := range cases {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrMalformedToken) {
			t.Fatalf("%s: expected ErrMalformedToken, got %v", name, err)
		}
	}
}
