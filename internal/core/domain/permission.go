package domain

import "strings"

// Permission is an opaque capability identifier such as "read:services".
type Permission string

// Wildcard grants every permission.
const Wildcard Permission = "*"

const (
	PermReadServices      Permission = "read:services"
	PermWriteServices     Permission = "write:services"
	PermReadCategories    Permission = "read:categories"
	PermWriteCategories   Permission = "write:categories"
	PermReadFeeTypes      Permission = "read:fee-types"
	PermWriteFeeTypes     Permission = "write:fee-types"
	PermCalculateFees     Permission = "calculate:fees"
	PermReadRecords       Permission = "read:records"
	PermWriteRecords      Permission = "write:records"
	PermReadOwnRecords    Permission = "read:own-records"
	PermWriteOwnRecords   Permission = "write:own-records"
	PermReadArticles      Permission = "read:articles"
	PermWriteArticles     Permission = "write:articles"
	PermReadListings      Permission = "read:listings"
	PermModerateListings  Permission = "moderate:listings"
	PermWriteOwnListings  Permission = "write:own-listings"
	PermWriteOwnComments  Permission = "write:own-comments"
	PermReadConsultations Permission = "read:consultations"
	PermWriteConsultation Permission = "write:consultations"
	PermWriteOwnConsult   Permission = "write:own-consultations"
	PermReadCampaigns     Permission = "read:campaigns"
	PermWriteCampaigns    Permission = "write:campaigns"
	PermReadChat          Permission = "read:chat"
	PermWriteChat         Permission = "write:chat"
	PermReadUsers         Permission = "read:users"
	PermWriteUsers        Permission = "write:users"
	PermReadOwnProfile    Permission = "read:own-profile"
	PermWriteOwnProfile   Permission = "write:own-profile"
)

var knownPermissions = map[Permission]struct{}{
	PermReadServices: {}, PermWriteServices: {},
	PermReadCategories: {}, PermWriteCategories: {},
	PermReadFeeTypes: {}, PermWriteFeeTypes: {}, PermCalculateFees: {},
	PermReadRecords: {}, PermWriteRecords: {}, PermReadOwnRecords: {}, PermWriteOwnRecords: {},
	PermReadArticles: {}, PermWriteArticles: {},
	PermReadListings: {}, PermModerateListings: {}, PermWriteOwnListings: {}, PermWriteOwnComments: {},
	PermReadConsultations: {}, PermWriteConsultation: {}, PermWriteOwnConsult: {},
	PermReadCampaigns: {}, PermWriteCampaigns: {},
	PermReadChat: {}, PermWriteChat: {},
	PermReadUsers: {}, PermWriteUsers: {},
	PermReadOwnProfile: {}, PermWriteOwnProfile: {},
}

// IsKnownPermission reports whether perm is one of the platform's declared
// permissions. Arbitrary strings are still valid inputs to HasPermission.
func IsKnownPermission(perm Permission) bool {
	_, ok := knownPermissions[perm]
	return ok
}

// PermissionMatrix maps roles to their granted permissions. It is built once
// and never mutated afterwards, so concurrent reads need no locking.
type PermissionMatrix struct {
	grants map[Role]map[Permission]struct{}
}

// NewPermissionMatrix copies grants into a new matrix.
func NewPermissionMatrix(grants map[Role][]Permission) *PermissionMatrix {
	m := &PermissionMatrix{grants: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		m.grants[role] = set
	}
	return m
}

// DefaultPermissionMatrix returns the platform's role table.
func DefaultPermissionMatrix() *PermissionMatrix {
	return NewPermissionMatrix(map[Role][]Permission{
		RoleAdmin: {Wildcard},
		RoleStaff: {
			PermReadServices, PermWriteServices,
			PermReadCategories, PermWriteCategories,
			PermReadFeeTypes, PermWriteFeeTypes, PermCalculateFees,
			PermReadRecords, PermWriteRecords,
			PermReadArticles, PermWriteArticles,
			PermReadListings, PermModerateListings,
			PermReadConsultations, PermWriteConsultation,
			PermReadCampaigns,
			PermReadChat, PermWriteChat,
			PermReadUsers,
			PermReadOwnProfile, PermWriteOwnProfile,
		},
		RoleCustomer: {
			PermReadServices,
			PermReadCategories,
			PermReadFeeTypes, PermCalculateFees,
			PermReadArticles,
			PermReadListings,
			PermReadOwnRecords, PermWriteOwnRecords,
			PermWriteOwnListings, PermWriteOwnComments,
			PermWriteOwnConsult,
			PermReadOwnProfile, PermWriteOwnProfile,
		},
	})
}

// HasPermission reports whether role is granted perm, either literally or via
// the wildcard. Unknown roles have no permissions. Roles do not inherit from
// one another.
func (m *PermissionMatrix) HasPermission(role Role, perm Permission) bool {
	set, ok := m.grants[role]
	if !ok {
		return false
	}
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok = set[perm]
	return ok
}

// PermissionsForRole returns a copy of the permissions granted to role, or nil
// for an unknown role.
func (m *PermissionMatrix) PermissionsForRole(role Role) []Permission {
	set, ok := m.grants[role]
	if !ok {
		return nil
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// IsOwnershipScoped reports whether perm only applies to resources owned by
// the caller (e.g. "write:own-records"). The matrix cannot enforce this; the
// resource owner must check it with OwnsResource.
func IsOwnershipScoped(perm Permission) bool {
	_, resource, ok := strings.Cut(string(perm), ":")
	return ok && strings.HasPrefix(resource, "own-")
}

// OwnsResource reports whether callerID owns a resource whose owner is ownerID.
func OwnsResource(callerID, ownerID string) bool {
	return callerID != "" && callerID == ownerID
}
