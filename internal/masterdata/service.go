package masterdata

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrValidation indicates the payload failed business validation.
var ErrValidation = errors.New("masterdata: validation failed")

// Service applies validation and search normalization on top of the
// tenant-scoped repository.
type Service struct {
	repo *Repository
}

// NewService constructs the master-data service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// searchNormalizer folds accented characters so "Café" matches "cafe".
var searchNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSearch prepares a user-supplied search term for ILIKE matching.
func NormalizeSearch(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	if folded, _, err := transform.String(searchNormalizer, term); err == nil {
		term = folded
	}
	return strings.ToLower(term)
}

func normalizeFilters(filters ListFilters) ListFilters {
	filters.Search = NormalizeSearch(filters.Search)
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	return filters
}

// ListProducts returns a page of products.
func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, normalizeFilters(filters))
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" || p.Name == "" {
		return Product{}, ErrValidation
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct validates and updates an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, p Product) error {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" || p.Name == "" {
		return ErrValidation
	}
	return s.repo.UpdateProduct(ctx, id, p)
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// ListSuppliers returns a page of suppliers.
func (s *Service) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.ListSuppliers(ctx, normalizeFilters(filters))
}

// GetSupplier fetches one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// CreateSupplier validates and stores a new supplier.
func (s *Service) CreateSupplier(ctx context.Context, sp Supplier) (Supplier, error) {
	sp.Code = strings.TrimSpace(sp.Code)
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Code == "" || sp.Name == "" {
		return Supplier{}, ErrValidation
	}
	return s.repo.CreateSupplier(ctx, sp)
}

// UpdateSupplier validates and updates an existing supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, sp Supplier) error {
	sp.Code = strings.TrimSpace(sp.Code)
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Code == "" || sp.Name == "" {
		return ErrValidation
	}
	return s.repo.UpdateSupplier(ctx, id, sp)
}

// DeleteSupplier removes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	return s.repo.DeleteSupplier(ctx, id)
}

// ListWarehouses returns all warehouses.
func (s *Service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

// CreateWarehouse validates and stores a new warehouse.
func (s *Service) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	w.Code = strings.TrimSpace(w.Code)
	w.Name = strings.TrimSpace(w.Name)
	if w.Code == "" || w.Name == "" {
		return Warehouse{}, ErrValidation
	}
	return s.repo.CreateWarehouse(ctx, w)
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	if c.Code == "" || c.Name == "" {
		return Category{}, ErrValidation
	}
	return s.repo.CreateCategory(ctx, c)
}

// ListUnits returns all units of measure.
func (s *Service) ListUnits(ctx context.Context) ([]Unit, error) {
	return s.repo.ListUnits(ctx)
}

// CreateUnit validates and stores a new unit of measure.
func (s *Service) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	u.Code = strings.TrimSpace(u.Code)
	u.Name = strings.TrimSpace(u.Name)
	if u.Code == "" || u.Name == "" {
		return Unit{}, ErrValidation
	}
	return s.repo.CreateUnit(ctx, u)
}

// ListTaxes returns all tax configurations.
func (s *Service) ListTaxes(ctx context.Context) ([]Tax, error) {
	return s.repo.ListTaxes(ctx)
}

// CreateTax validates and stores a new tax configuration.
func (s *Service) CreateTax(ctx context.Context, t Tax) (Tax, error) {
	t.Code = strings.TrimSpace(t.Code)
	t.Name = strings.TrimSpace(t.Name)
	if t.Code == "" || t.Name == "" || t.Rate < 0 {
		return Tax{}, ErrValidation
	}
	return s.repo.CreateTax(ctx, t)
}
