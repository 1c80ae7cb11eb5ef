package auth

import (
	"strings"

	"github.com/lacomanda/pos-terminal/internal/common"
)

// ElevatedRoles may reduce persisted quantities and remove persisted lines.
var ElevatedRoles = map[string]struct{}{
	"admin":         {},
	"dueño":         {},
	"administrador": {},
}

// CanModifyPersisted reports whether the actor may shrink or remove lines
// that the backend has already accepted. A supervisor PIN elevation counts
// the same as holding an elevated role.
func CanModifyPersisted(actor common.Actor) bool {
	if actor.Elevated {
		return true
	}
	for _, role := range actor.Roles {
		if _, ok := ElevatedRoles[strings.ToLower(strings.TrimSpace(role))]; ok {
			return true
		}
	}
	return false
}
