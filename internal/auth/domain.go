package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user account. TenantID is nil for
// system accounts, which operate without tenant scoping.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	TenantID     *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReauthPolicy selects how an expired session is routed back through
// authentication. Both values currently take the interactive path.
type ReauthPolicy string

const (
	// ReauthInteractive requires a fresh interactive login.
	ReauthInteractive ReauthPolicy = "interactive"
	// ReauthRefresh is reserved for a non-interactive refresh flow.
	ReauthRefresh ReauthPolicy = "refresh"
)
