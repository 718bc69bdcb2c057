package masterdata

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-mdm/atlas-mdm/internal/platform/db"
	"github.com/atlas-mdm/atlas-mdm/internal/tenant"
)

// ErrNoScope indicates a master-data access without a resolved tenant
// scope in context. Trusted system paths must opt in explicitly with
// tenant.Unscoped; absence is never treated as full visibility.
var ErrNoScope = errors.New("masterdata: no tenant scope in context")

// ErrNotFound indicates the row does not exist within the caller's scope.
var ErrNotFound = errors.New("masterdata: not found")

// Repository provides PostgreSQL backed persistence. Every query runs
// through the tenant-scoped session; no method takes or builds a tenant
// filter itself.
type Repository struct {
	q        db.Querier
	injector *tenant.Injector
}

// NewRepository constructs a repository.
func NewRepository(q db.Querier, injector *tenant.Injector) *Repository {
	return &Repository{q: q, injector: injector}
}

// session binds a scoped data-access session for this request.
func (r *Repository) session(ctx context.Context) (*db.ScopedSession, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, ErrNoScope
	}
	return db.BindTenantScope(r.q, tc, r.injector), nil
}

// listConditions renders the shared list filters into where conditions.
func listConditions(filters ListFilters, searchColumns []string) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		clause := "("
		for i, col := range searchColumns {
			if i > 0 {
				clause += " OR "
			}
			clause += col + " ILIKE $" + n
		}
		clause += ")"
		where = append(where, clause)
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where = append(where, "is_active = $"+strconv.Itoa(len(args)))
	}
	return where, args
}

func pageWindow(filters ListFilters) (limit, offset int) {
	limit = filters.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// ListProducts returns one page of products with the total count.
func (r *Repository) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := listConditions(filters, []string{"name", "sku"})
	limit, offset := pageWindow(filters)

	row, err := sess.Get(ctx, db.SelectStmt{
		From:    ProductModel,
		Columns: []string{"COUNT(*)"},
		Where:   where,
		Args:    args,
	})
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := sess.Select(ctx, db.SelectStmt{
		From:    ProductModel,
		Columns: []string{"id", "tenant_id", "sku", "name", "category_id", "unit_id", "is_active", "created_at", "updated_at"},
		Where:   where,
		Args:    args,
		OrderBy: "name",
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.CategoryID, &p.UnitID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// GetProduct fetches a single product by id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Product{}, err
	}
	row, err := sess.Get(ctx, db.SelectStmt{
		From:    ProductModel,
		Columns: []string{"id", "tenant_id", "sku", "name", "category_id", "unit_id", "is_active", "created_at", "updated_at"},
		Where:   []string{"id = $1"},
		Args:    []any{id},
	})
	if err != nil {
		return Product{}, err
	}
	var p Product
	if err := row.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.CategoryID, &p.UnitID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, mapNoRows(err)
	}
	return p, nil
}

// CreateProduct inserts a new product into the caller's tenant.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Product{}, err
	}
	now := time.Now().UTC()
	row, err := sess.InsertReturning(ctx, db.InsertStmt{
		Into:      ProductModel,
		Columns:   []string{"sku", "name", "category_id", "unit_id", "is_active", "created_at", "updated_at"},
		Args:      []any{p.SKU, p.Name, p.CategoryID, p.UnitID, p.IsActive, now, now},
		Returning: "id, tenant_id",
	})
	if err != nil {
		return Product{}, err
	}
	if err := row.Scan(&p.ID, &p.TenantID); err != nil {
		return Product{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

// UpdateProduct updates an existing product.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	sess, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := sess.Update(ctx, db.UpdateStmt{
		Table: ProductModel,
		Set:   []string{"sku = $1", "name = $2", "category_id = $3", "unit_id = $4", "is_active = $5", "updated_at = $6"},
		Where: []string{"id = $7"},
		Args:  []any{p.SKU, p.Name, p.CategoryID, p.UnitID, p.IsActive, time.Now().UTC(), id},
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	sess, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := sess.Delete(ctx, db.DeleteStmt{
		From:  ProductModel,
		Where: []string{"id = $1"},
		Args:  []any{id},
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSuppliers returns one page of suppliers with the total count.
func (r *Repository) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := listConditions(filters, []string{"name", "code"})
	limit, offset := pageWindow(filters)

	row, err := sess.Get(ctx, db.SelectStmt{
		From:    SupplierModel,
		Columns: []string{"COUNT(*)"},
		Where:   where,
		Args:    args,
	})
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := sess.Select(ctx, db.SelectStmt{
		From:    SupplierModel,
		Columns: []string{"id", "tenant_id", "code", "name", "email", "is_active", "created_at", "updated_at"},
		Where:   where,
		Args:    args,
		OrderBy: "name",
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Code, &s.Name, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

// GetSupplier fetches a single supplier by id.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Supplier{}, err
	}
	row, err := sess.Get(ctx, db.SelectStmt{
		From:    SupplierModel,
		Columns: []string{"id", "tenant_id", "code", "name", "email", "is_active", "created_at", "updated_at"},
		Where:   []string{"id = $1"},
		Args:    []any{id},
	})
	if err != nil {
		return Supplier{}, err
	}
	var s Supplier
	if err := row.Scan(&s.ID, &s.TenantID, &s.Code, &s.Name, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Supplier{}, mapNoRows(err)
	}
	return s, nil
}

// CreateSupplier inserts a new supplier into the caller's tenant.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Supplier{}, err
	}
	now := time.Now().UTC()
	row, err := sess.InsertReturning(ctx, db.InsertStmt{
		Into:      SupplierModel,
		Columns:   []string{"code", "name", "email", "is_active", "created_at", "updated_at"},
		Args:      []any{s.Code, s.Name, s.Email, s.IsActive, now, now},
		Returning: "id, tenant_id",
	})
	if err != nil {
		return Supplier{}, err
	}
	if err := row.Scan(&s.ID, &s.TenantID); err != nil {
		return Supplier{}, err
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return s, nil
}

// UpdateSupplier updates an existing supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, id int64, s Supplier) error {
	sess, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := sess.Update(ctx, db.UpdateStmt{
		Table: SupplierModel,
		Set:   []string{"code = $1", "name = $2", "email = $3", "is_active = $4", "updated_at = $5"},
		Where: []string{"id = $6"},
		Args:  []any{s.Code, s.Name, s.Email, s.IsActive, time.Now().UTC(), id},
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSupplier removes a supplier.
func (r *Repository) DeleteSupplier(ctx context.Context, id int64) error {
	sess, err := r.session(ctx)
	if err != nil {
		return err
	}
	affected, err := sess.Delete(ctx, db.DeleteStmt{
		From:  SupplierModel,
		Where: []string{"id = $1"},
		Args:  []any{id},
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWarehouses returns all warehouses in the caller's tenant.
func (r *Repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := sess.Select(ctx, db.SelectStmt{
		From:    WarehouseModel,
		Columns: []string{"id", "tenant_id", "code", "name", "address"},
		OrderBy: "name",
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.TenantID, &w.Code, &w.Name, &w.Address); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

// CreateWarehouse inserts a new warehouse into the caller's tenant.
func (r *Repository) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Warehouse{}, err
	}
	row, err := sess.InsertReturning(ctx, db.InsertStmt{
		Into:      WarehouseModel,
		Columns:   []string{"code", "name", "address"},
		Args:      []any{w.Code, w.Name, w.Address},
		Returning: "id, tenant_id",
	})
	if err != nil {
		return Warehouse{}, err
	}
	if err := row.Scan(&w.ID, &w.TenantID); err != nil {
		return Warehouse{}, err
	}
	return w, nil
}

// ListCategories returns all categories in the caller's tenant.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := sess.Select(ctx, db.SelectStmt{
		From:    CategoryModel,
		Columns: []string{"id", "tenant_id", "code", "name", "parent_id"},
		OrderBy: "name",
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Code, &c.Name, &c.ParentID); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a new category into the caller's tenant.
func (r *Repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Category{}, err
	}
	row, err := sess.InsertReturning(ctx, db.InsertStmt{
		Into:      CategoryModel,
		Columns:   []string{"code", "name", "parent_id"},
		Args:      []any{c.Code, c.Name, c.ParentID},
		Returning: "id, tenant_id",
	})
	if err != nil {
		return Category{}, err
	}
	if err := row.Scan(&c.ID, &c.TenantID); err != nil {
		return Category{}, err
	}
	return c, nil
}

// ListUnits returns all units of measure in the caller's tenant.
func (r *Repository) ListUnits(ctx context.Context) ([]Unit, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := sess.Select(ctx, db.SelectStmt{
		From:    UnitModel,
		Columns: []string{"id", "tenant_id", "code", "name"},
		OrderBy: "code",
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Code, &u.Name); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// CreateUnit inserts a new unit of measure into the caller's tenant.
func (r *Repository) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Unit{}, err
	}
	row, err := sess.InsertReturning(ctx, db.InsertStmt{
		Into:      UnitModel,
		Columns:   []string{"code", "name"},
		Args:      []any{u.Code, u.Name},
		Returning: "id, tenant_id",
	})
	if err != nil {
		return Unit{}, err
	}
	if err := row.Scan(&u.ID, &u.TenantID); err != nil {
		return Unit{}, err
	}
	return u, nil
}

// ListTaxes returns all tax configurations in the caller's tenant.
func (r *Repository) ListTaxes(ctx context.Context) ([]Tax, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := sess.Select(ctx, db.SelectStmt{
		From:    TaxModel,
		Columns: []string{"id", "tenant_id", "code", "name", "rate"},
		OrderBy: "code",
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var taxes []Tax
	for rows.Next() {
		var t Tax
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Code, &t.Name, &t.Rate); err != nil {
			return nil, err
		}
		taxes = append(taxes, t)
	}
	return taxes, rows.Err()
}

// CreateTax inserts a new tax configuration into the caller's tenant.
func (r *Repository) CreateTax(ctx context.Context, t Tax) (Tax, error) {
	sess, err := r.session(ctx)
	if err != nil {
		return Tax{}, err
	}
	row, err := sess.InsertReturning(ctx, db.InsertStmt{
		Into:      TaxModel,
		Columns:   []string{"code", "name", "rate"},
		Args:      []any{t.Code, t.Name, t.Rate},
		Returning: "id, tenant_id",
	})
	if err != nil {
		return Tax{}, err
	}
	if err := row.Scan(&t.ID, &t.TenantID); err != nil {
		return Tax{}, err
	}
	return t, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
