package domain

import (
	"strings"
	"time"
)

// Role is the coarse authorization class of an identity.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole returns the Role named by s (case-insensitive) and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return r, true
	}
	return "", false
}

// Identity is the authoritative user record consulted for authentication.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary returns the subset of the identity exposed across the trust boundary.
func (i *Identity) Summary() UserSummary {
	return UserSummary{
		ID:       i.ID,
		Email:    i.Email,
		FullName: i.FullName,
		Role:     i.Role,
	}
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// every stored record goes through it so that email uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
