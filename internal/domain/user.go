package domain

import "time"

// UserRole is the single, immutable role a user holds.
type UserRole string

const (
	UserRoleClient    UserRole = "CLIENT"
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleDeveloper UserRole = "DEVELOPER"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleClient, UserRoleAdmin, UserRoleDeveloper:
		return true
	}
	return false
}

// IsSupport reports whether the role answers tickets on the support side.
func (r UserRole) IsSupport() bool {
	return r == UserRoleDeveloper
}

// User is the domain model for everyone who signs in: clients, agents and developers.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
