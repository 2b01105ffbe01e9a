package shared

// Role names a permission set held by principals.
type Role string

// Roles recognised by the access registry.
const (
	RoleDefaultAdmin Role = "DEFAULT_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleClaimManager Role = "CLAIM_MANAGER"
	RoleHospital     Role = "HOSPITAL"
)

// KnownRoles lists every role the registry accepts.
func KnownRoles() []Role {
	return []Role{
		RoleDefaultAdmin,
		RoleAdmin,
		RoleClaimManager,
		RoleHospital,
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range KnownRoles() {
		if r == known {
			return true
		}
	}
	return false
}
