package domain

// Role represents an admin role in the system
type Role string

const (
	RoleSystemAdmin Role = "system_admin"
	RoleDataEncoder Role = "data_encoder"
)

// Capability is a single permission checked by handlers and services
type Capability string

const (
	CapManageOwnAccount Capability = "manage_own_account"
	CapViewAdmins       Capability = "view_admins"
	CapManageAdmins     Capability = "manage_admins"
	CapUnlockAccounts   Capability = "unlock_accounts"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleSystemAdmin: {
		CapManageOwnAccount: true,
		CapViewAdmins:       true,
		CapManageAdmins:     true,
		CapUnlockAccounts:   true,
	},
	RoleDataEncoder: {
		CapManageOwnAccount: true,
	},
}

// ParseRole normalizes a stored role; unset or unknown values get the lowest privilege
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSystemAdmin:
		return RoleSystemAdmin
	default:
		return RoleDataEncoder
	}
}

// IsValidRole reports whether s names one of the closed set of roles
func IsValidRole(s string) bool {
	_, ok := roleCapabilities[Role(s)]
	return ok
}

// Can reports whether the role grants the capability
func (r Role) Can(c Capability) bool {
	return roleCapabilities[ParseRole(string(r))][c]
}
