package github

import (
	"fmt"
	"strings"
)

// Repository roles, as displayed by GitHub
const (
	RoleRead     = "read"
	RoleTriage   = "triage"
	RoleWrite    = "write"
	RoleMaintain = "maintain"
	RoleAdmin    = "admin"
	RoleNone     = "none"
)

var roleRanks = map[string]int{
	RoleNone:     0,
	RoleRead:     1,
	RoleTriage:   2,
	RoleWrite:    3,
	RoleMaintain: 4,
	RoleAdmin:    5,
}

// RoleName maps both API permission names (pull, push) and role names (read, write)
// to the role name. Unknown values are returned lower-cased.
func RoleName(permission string) string {
	switch p := strings.ToLower(strings.TrimSpace(permission)); p {
	case "pull", RoleRead:
		return RoleRead
	case "push", RoleWrite:
		return RoleWrite
	case "", RoleNone:
		return RoleNone
	default:
		return p
	}
}

// APIPermission converts a role or permission name to the value the REST API accepts
// when granting access.
func APIPermission(permission string) (string, error) {
	switch role := RoleName(permission); role {
	case RoleRead:
		return "pull", nil
	case RoleWrite:
		return "push", nil
	case RoleTriage, RoleMaintain, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("unknown permission %q: expected one of read, triage, write, maintain, admin", permission)
	}
}

// PermissionRank orders roles from none (0) to admin (5). Unknown roles rank -1.
func PermissionRank(permission string) int {
	if rank, ok := roleRanks[RoleName(permission)]; ok {
		return rank
	}
	return -1
}

// SamePermission reports whether two permission spellings denote the same role
func SamePermission(a, b string) bool {
	return RoleName(a) == RoleName(b)
}

// roleFromPermissions picks the highest role from a GitHub permissions map
func roleFromPermissions(perms map[string]bool) string {
	switch {
	case perms["admin"]:
		return RoleAdmin
	case perms["maintain"]:
		return RoleMaintain
	case perms["push"]:
		return RoleWrite
	case perms["triage"]:
		return RoleTriage
	case perms["pull"]:
		return RoleRead
	default:
		return RoleNone
	}
}
