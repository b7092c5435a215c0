package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Scope string

const (
	ScopeUsageDashboard Scope = "usage:dashboard"
	ScopeUserDashboard  Scope = "user:dashboard"
	ScopeUserChat       Scope = "user:chat"
	ScopeUserAgent      Scope = "user:agent"
)

var roleScopes = map[Role][]Scope{
	RoleAdmin: {ScopeUsageDashboard, ScopeUserDashboard, ScopeUserChat, ScopeUserAgent},
	RoleUser:  {ScopeUserChat, ScopeUserAgent},
}

func (r Role) Valid() bool {
	_, ok := roleScopes[r]
	return ok
}

type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Roles     []Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scopes returns the union of the scopes granted by the user's roles.
func (u *User) Scopes() []Scope {
	return ScopesForRoles(u.Roles)
}

func ScopesForRoles(roles []Role) []Scope {
	var scopes []Scope
	for _, r := range roles {
		for _, s := range roleScopes[r] {
			if !slices.Contains(scopes, s) {
				scopes = append(scopes, s)
			}
		}
	}
	return scopes
}
