package user

import "github.com/google/uuid"

// Actor is the authenticated identity a workflow operation runs as. The core
// trusts role resolution but re-checks assigned-mechanic identity itself on
// every mechanic-restricted operation.
type Actor struct {
	UserID      uuid.UUID
	Username    string
	DisplayName string
	Role        Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
