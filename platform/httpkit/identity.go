package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller authenticated by AuthRequired.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the caller holds role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// GetIdentity returns the caller, or false on routes outside AuthRequired.
func GetIdentity(c *gin.Context) (Identity, bool) {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return Identity{}, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}

	id := Identity{UserID: userID}
	if roles, ok := c.Get(ContextRolesKey); ok {
		id.Roles, _ = roles.([]string)
	}
	return id, true
}
