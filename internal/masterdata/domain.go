package masterdata

import (
	"time"

	"github.com/google/uuid"
)

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool
}

// Product is a sellable or purchasable item in the tenant's catalog.
type Product struct {
	ID         int64     `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	CategoryID *int64    `json:"category_id"`
	UnitID     *int64    `json:"unit_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Supplier represents a supplier entity.
type Supplier struct {
	ID        int64     `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Warehouse represents a storage location.
type Warehouse struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
}

// Category represents a product category.
type Category struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	ParentID *int64    `json:"parent_id"`
}

// Unit represents a unit of measure.
type Unit struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
}

// Tax represents a tax configuration.
type Tax struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Rate     float64   `json:"rate"`
}
