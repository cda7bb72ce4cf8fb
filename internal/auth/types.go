package auth

import (
	"errors"
	"slices"
)

// Role is an operator's authorisation tier.
type Role string

const (
	// RoleViewer can observe activity but not read statement parameters.
	RoleViewer Role = "viewer"

	// RoleAdmin can additionally read the audit trail and run statements.
	RoleAdmin Role = "admin"
)

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	return r == RoleViewer || r == RoleAdmin
}

// Permission is a named capability checked by the API middleware.
type Permission string

const (
	PermStatsRead    Permission = "stats:read"
	PermAuditRead    Permission = "audit:read"
	PermQueryExecute Permission = "query:execute"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer: {PermStatsRead},
	RoleAdmin:  {PermStatsRead, PermAuditRead, PermQueryExecute},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// Sentinel errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
