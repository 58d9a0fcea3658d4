package enums

import "fmt"

// UserRole classifies a platform account.
type UserRole string

const (
	UserRoleAdmin       UserRole = "admin"
	UserRoleDistributor UserRole = "distributor"
	UserRoleRetailer    UserRole = "retailer"
	UserRoleClient      UserRole = "client"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleDistributor,
	UserRoleRetailer,
	UserRoleClient,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// MarginEligible reports whether an admin may assign a margin to this role.
func (r UserRole) MarginEligible() bool {
	switch r {
	case UserRoleDistributor, UserRoleRetailer:
		return true
	case UserRoleAdmin, UserRoleClient:
		return false
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
