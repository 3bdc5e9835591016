package models

import "fmt"

// Role is the closed set of user roles. The zero value is not a valid role.
type Role struct {
	name string
}

var (
	RoleSuperadmin = Role{"SUPERADMIN"}
	RoleAdmin      = Role{"ADMIN"}
	RoleWorker     = Role{"WORKER"}
)

var roles = map[string]Role{
	RoleSuperadmin.name: RoleSuperadmin,
	RoleAdmin.name:      RoleAdmin,
	RoleWorker.name:     RoleWorker,
}

// ParseRole converts a stored or transmitted role name into a Role.
func ParseRole(value string) (Role, error) {
	role, exists := roles[value]
	if !exists {
		return Role{}, fmt.Errorf("invalid role %q", value)
	}
	return role, nil
}

func (r Role) String() string {
	return r.name
}

func (r Role) IsZero() bool {
	return r.name == ""
}

// TenantScoped reports whether users with this role belong to a company.
func (r Role) TenantScoped() bool {
	return r == RoleAdmin || r == RoleWorker
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.name), nil
}

func (r *Role) UnmarshalText(data []byte) error {
	role, err := ParseRole(string(data))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
