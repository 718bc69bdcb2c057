package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-mdm/atlas-mdm/internal/tenant"
	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type scopedModel struct {
	table string
}

func (m scopedModel) TenantScopedTable() (string, string) {
	return m.table, "tenant_id"
}

func testInjector(t *testing.T, tables ...string) *tenant.Injector {
	t.Helper()
	injector := tenant.NewInjector()
	for _, table := range tables {
		require.NoError(t, injector.Register(scopedModel{table: table}))
	}
	return injector
}

func TestBuildSelectScoped(t *testing.T) {
	tenantID := uuid.New()
	sess := BindTenantScope(nil, tenant.Scope(tenantID), testInjector(t, "products"))

	sql, args, err := sess.buildSelect(SelectStmt{
		From:    scopedModel{table: "products"},
		Columns: []string{"id", "name"},
		Where:   []string{"is_active = $1"},
		Args:    []any{true},
		OrderBy: "name",
		Limit:   20,
		Offset:  40,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM products WHERE is_active = $1 AND tenant_id = $2 ORDER BY name LIMIT 20 OFFSET 40", sql)
	assert.Equal(t, []any{true, tenantID}, args)
}

func TestBuildSelectUnscoped(t *testing.T) {
	sess := BindTenantScope(nil, tenant.Unscoped(), testInjector(t, "products"))

	sql, args, err := sess.buildSelect(SelectStmt{
		From:    scopedModel{table: "products"},
		Columns: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM products", sql)
	assert.Empty(t, args)
}

func TestBuildSelectNoWhere(t *testing.T) {
	tenantID := uuid.New()
	sess := BindTenantScope(nil, tenant.Scope(tenantID), testInjector(t, "units"))

	sql, args, err := sess.buildSelect(SelectStmt{
		From:    scopedModel{table: "units"},
		Columns: []string{"id", "code"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, code FROM units WHERE tenant_id = $1", sql)
	assert.Equal(t, []any{tenantID}, args)
}

func TestBuildInsertScoped(t *testing.T) {
	tenantID := uuid.New()
	sess := BindTenantScope(nil, tenant.Scope(tenantID), testInjector(t, "products"))

	sql, args, err := sess.buildInsert(InsertStmt{
		Into:      scopedModel{table: "products"},
		Columns:   []string{"sku", "name"},
		Args:      []any{"SKU-1", "Widget"},
		Returning: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO products (sku, name, tenant_id) VALUES ($1, $2, $3) RETURNING id", sql)
	assert.Equal(t, []any{"SKU-1", "Widget", tenantID}, args)
}

func TestBuildInsertUnscoped(t *testing.T) {
	sess := BindTenantScope(nil, tenant.Unscoped(), testInjector(t, "products"))

	sql, args, err := sess.buildInsert(InsertStmt{
		Into:    scopedModel{table: "products"},
		Columns: []string{"sku"},
		Args:    []any{"SKU-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO products (sku) VALUES ($1)", sql)
	assert.Equal(t, []any{"SKU-1"}, args)
}

func TestScopeUnregisteredTableFails(t *testing.T) {
	sess := BindTenantScope(nil, tenant.Scope(uuid.New()), testInjector(t, "products"))

	_, _, err := sess.buildSelect(SelectStmt{
		From:    scopedModel{table: "suppliers"},
		Columns: []string{"id"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tenant.ErrIsolationDefect)

	_, _, err = sess.buildInsert(InsertStmt{
		Into:    scopedModel{table: "suppliers"},
		Columns: []string{"code"},
		Args:    []any{"S-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tenant.ErrIsolationDefect)
}

// Two sessions bound to different tenants must never produce the same
// predicate arguments for the same statement.
func TestScopeSeparatesTenants(t *testing.T) {
	injector := testInjector(t, "products")
	a := uuid.New()
	b := uuid.New()

	sessA := BindTenantScope(nil, tenant.Scope(a), injector)
	sessB := BindTenantScope(nil, tenant.Scope(b), injector)

	stmt := SelectStmt{From: scopedModel{table: "products"}, Columns: []string{"id"}}
	_, argsA, err := sessA.buildSelect(stmt)
	require.NoError(t, err)
	_, argsB, err := sessB.buildSelect(stmt)
	require.NoError(t, err)

	assert.Equal(t, []any{a}, argsA)
	assert.Equal(t, []any{b}, argsB)
	assert.NotEqual(t, argsA, argsB)
}
