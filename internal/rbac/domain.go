package rbac

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
)

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CatalogEntry is one persisted permission key: a symbolic name together
// with its database-assigned identifier.
type CatalogEntry struct {
	ID   uuid.UUID
	Name string
}

// Grant is the effective permission set of a user at a point in time. The
// login flow turns it into an immutable session snapshot.
type Grant struct {
	Role  string
	Pairs []authz.Pair
}
