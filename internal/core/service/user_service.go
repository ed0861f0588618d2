package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
	"github.com/sonbon03/vinhxuan-mono-sub003/pkg/password"
)

const minPasswordLength = 8

type userService struct {
	repo   ports.IdentityRepository
	hasher *password.Hasher
	log    zerolog.Logger
	now    Clock
}

// NewUserService returns the user-management service that owns identity writes.
func NewUserService(repo ports.IdentityRepository, hasher *password.Hasher, log zerolog.Logger) ports.UserService {
	return &userService{repo: repo, hasher: hasher, log: log, now: time.Now}
}

func (s *userService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", domain.ErrInvalidIdentity)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidIdentity, minPasswordLength)
	}
	role, ok := domain.ParseRole(string(in.Role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidIdentity, in.Role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Identity{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("identity registered")
	return created, nil
}

func (s *userService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Bool("active", active).Msg("identity status changed")
	return nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.Identity, error) {
	return s.repo.FindByID(ctx, id)
}

// EnsureAdmin registers an ADMIN identity for email unless one already exists.
// It is used once at startup to seed the first administrator.
func EnsureAdmin(ctx context.Context, users ports.UserService, email, pass string) (*domain.Identity, error) {
	identity, err := users.Register(ctx, ports.RegisterInput{
		Email:    email,
		Password: pass,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	})
	if errors.Is(err, domain.ErrIdentityExists) {
		return nil, nil
	}
	return identity, err
}
