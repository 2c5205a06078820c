package auth

// UserRole is the user's role
type UserRole = string

const (
	// RoleStandardUser can see and edit their own resources
	RoleStandardUser UserRole = "standard_user"
	// RoleAdmin can see and edit any user's resources
	RoleAdmin UserRole = "admin"
)

// RoleValidator defines the interface for role-based access control validation
type RoleValidator interface {
	// HasRole checks if the user has a specific role
	HasRole(role string) bool

	// IsAdmin checks if the user carries the admin role
	IsAdmin() bool
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleStandardUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleStandardUser,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type. Unknown and
// empty values fall back to the standard user role, matching the account
// model's default.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	if IsValidRole(role) {
		return role, true
	}
	return RoleStandardUser, false
}
