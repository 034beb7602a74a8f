package auth

import (
	"strings"

	"github.com/Togather-Foundation/confdir/internal/domain/users"
)

// NormalizeRole maps a token role claim onto a user role. Unknown values get
// the least privileged role.
func NormalizeRole(role string) users.Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin":
		return users.RoleAdmin
	case "editor":
		return users.RoleEditor
	default:
		return users.RoleViewer
	}
}

func HasRole(role string, allowed ...users.Role) bool {
	current := NormalizeRole(role)
	for _, candidate := range allowed {
		if current == candidate {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == users.RoleAdmin
}
