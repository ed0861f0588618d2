package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/pkg/password"
)

const testSecret = "test-signing-secret"

type stubIdentityRepo struct {
	users   map[string]*domain.Identity
	findErr error
	nextID  int
	// findGate, when set, holds every FindByID call until all expected
	// callers have arrived.
	findGate *sync.WaitGroup
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{users: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneIdentity(u), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	if r.findGate != nil {
		r.findGate.Done()
		r.findGate.Wait()
	}
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(u), nil
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	for _, u := range r.users {
		if u.Email == identity.Email {
			return nil, domain.ErrIdentityExists
		}
	}
	copy := cloneIdentity(identity)
	if copy.ID == "" {
		r.nextID++
		copy.ID = fmt.Sprintf("id-%d", r.nextID)
	}
	r.users[copy.ID] = cloneIdentity(copy)
	return cloneIdentity(copy), nil
}

func (r *stubIdentityRepo) SetActive(_ context.Context, id string, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	u.Active = active
	return nil
}

type stubDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newStubDenylist() *stubDenylist {
	return &stubDenylist{revoked: make(map[string]time.Time)}
}

func (d *stubDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.revoked[tokenID] = until
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[tokenID]
	return ok, nil
}

func (d *stubDenylist) Consume(_ context.Context, tokenID string, until time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if _, ok := d.revoked[tokenID]; ok {
		return false, nil
	}
	d.revoked[tokenID] = until
	return true, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Record(e domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) last() domain.AuthEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return domain.AuthEvent{}
	}
	return a.events[len(a.events)-1]
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func newTestTokens(t *testing.T, clock *fakeClock) (*TokenIssuer, *TokenVerifier) {
	t.Helper()
	cfg := TokenConfig{Secret: testSecret, AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour}
	issuer, err := NewTokenIssuer(cfg, clock.Now)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	verifier, err := NewTokenVerifier(cfg, clock.Now)
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	return issuer, verifier
}

// authFixture wires an AuthService around in-memory collaborators and seeds
// the customer identity u1 / a@x.com / Secret123.
type authFixture struct {
	svc      *AuthService
	repo     *stubIdentityRepo
	clock    *fakeClock
	issuer   *TokenIssuer
	verifier *TokenVerifier
	audit    *recordingAudit
}

func newAuthFixture(t *testing.T, opts ...AuthOption) *authFixture {
	t.Helper()
	clock := newFakeClock()
	hasher := newTestHasher(t)
	issuer, verifier := newTestTokens(t, clock)

	hash, err := hasher.Hash("Secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := newStubIdentityRepo()
	repo.users["u1"] = &domain.Identity{
		ID:           "u1",
		Email:        "a@x.com",
		FullName:     "Alice Nguyen",
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Active:       true,
	}

	audit := &recordingAudit{}
	opts = append([]AuthOption{WithAuditRecorder(audit), WithClock(clock.Now)}, opts...)
	svc := NewAuthService(repo, hasher, issuer, verifier, domain.DefaultPermissionMatrix(), zerolog.Nop(), opts...)

	return &authFixture{svc: svc, repo: repo, clock: clock, issuer: issuer, verifier: verifier, audit: audit}
}
