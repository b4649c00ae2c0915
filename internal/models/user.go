package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleOffice     UserRole = "OFFICE"
	RoleTeacher    UserRole = "TEACHER"
	RoleParent     UserRole = "PARENT"
)

// StaffRoles may run the dismissal desk for their school.
var StaffRoles = []UserRole{RoleSuperAdmin, RoleAdmin, RoleOffice}

// IsStaff reports whether the role can perform office actions.
func (r UserRole) IsStaff() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOffice:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOffice, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// Caller is the authenticated identity performing an operation.
type Caller struct {
	UserID   string
	Role     UserRole
	SchoolID string
	FullName string
}

// IsSuperAdmin reports whether the caller bypasses school scoping.
func (c Caller) IsSuperAdmin() bool { return c.Role == RoleSuperAdmin }

// CanAccessSchool reports whether the caller is scoped to schoolID.
func (c Caller) CanAccessSchool(schoolID string) bool {
	return c.IsSuperAdmin() || (c.SchoolID != "" && c.SchoolID == schoolID)
}
