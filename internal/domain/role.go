package domain

import "strings"

// Role identifies the privilege tier of an authenticated principal.
type Role string

// Role constants. RoleUnknown is never granted any privilege.
const (
	RoleCustomer   Role = "customer"
	RoleVendor     Role = "vendor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleUnknown    Role = "unknown"
)

// User type constants stored in users.user_type.
const (
	UserTypeCustomer = "customer"
	UserTypeVendor   = "vendor"
)

// ParseRole maps a stored role string onto the closed Role enumeration.
// "user" is the legacy name of the customer role. Anything else is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer, "user":
		return RoleCustomer
	case RoleVendor:
		return RoleVendor
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUnknown
	}
}

// ResolveRole combines users.role and users.user_type. Admin roles win; a
// customer row whose user_type is vendor is a vendor.
func ResolveRole(role, userType string) Role {
	r := ParseRole(role)
	if r == RoleCustomer && strings.TrimSpace(userType) == UserTypeVendor {
		return RoleVendor
	}
	return r
}

// IsAdmin reports whether the role may perform administrative operations.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Known reports whether r is part of the enumeration.
func (r Role) Known() bool {
	return ParseRole(string(r)) != RoleUnknown
}

func (r Role) String() string {
	return string(r)
}

// RoleRecord is the privileged projection of a users row used for access
// decisions. VendorStatus is empty when the user has no vendor profile.
type RoleRecord struct {
	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	UserType     string       `json:"user_type"`
	VendorStatus VendorStatus `json:"vendor_status,omitempty"`
}

// HasVendorProfile reports whether the record carries a vendor profile.
func (r *RoleRecord) HasVendorProfile() bool {
	return r.VendorStatus != ""
}

// IsVendor reports whether the user is exactly a vendor account with a
// profile.
func (r *RoleRecord) IsVendor() bool {
	return r.UserType == UserTypeVendor && r.HasVendorProfile()
}

// Principal is the resolved caller of a request.
type Principal struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	UserType     string       `json:"user_type,omitempty"`
	VendorStatus VendorStatus `json:"vendor_status,omitempty"`
}
