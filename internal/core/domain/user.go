package domain

import "github.com/google/uuid"

// Role defines the roles a caller can carry in its token. Identity lives with
// the external IdP; this service only ever inspects the decoded role set.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleUser    Role = "USER"
	RoleSupreme Role = "SUPREME"
	RoleElite   Role = "ELITE"
	RoleBasic   Role = "BASIC"
)

// Caller is the authenticated principal extracted from the bearer token by
// the auth middleware. Token keeps the raw bearer value for pass-through
// calls to the payment service.
type Caller struct {
	Username string
	PersonID uuid.UUID
	Roles    []Role
	Token    string
}

// HasAnyRole reports whether the caller holds at least one of the given roles.
func (c Caller) HasAnyRole(roles ...Role) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RoleStrings returns the caller's roles as plain strings, for diagnostics.
func (c Caller) RoleStrings() []string {
	out := make([]string, len(c.Roles))
	for i, r := range c.Roles {
		out[i] = string(r)
	}
	return out
}
