package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account for administration. TenantID is nil for
// system accounts that operate across tenants.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role,omitempty"`
	TenantID  *uuid.UUID `json:"tenant_id"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
