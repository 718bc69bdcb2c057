package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type fakeModel struct {
	table  string
	column string
}

func (m fakeModel) TenantScopedTable() (string, string) {
	return m.table, m.column
}

func TestInjectorRegister(t *testing.T) {
	injector := NewInjector()
	require.NoError(t, injector.Register(fakeModel{table: "products", column: "tenant_id"}))

	d, ok := injector.Descriptor("products")
	require.True(t, ok)
	assert.Equal(t, Descriptor{Table: "products", Column: "tenant_id"}, d)

	err := injector.Register(fakeModel{table: "products", column: "tenant_id"})
	assert.Error(t, err, "duplicate table registration must fail")

	err = injector.Register(fakeModel{})
	assert.Error(t, err, "empty table/column must fail")
}

func TestInjectorValidate(t *testing.T) {
	injector := NewInjector()
	registered := fakeModel{table: "products", column: "tenant_id"}
	require.NoError(t, injector.Register(registered))

	assert.NoError(t, injector.Validate(registered))

	missing := fakeModel{table: "suppliers", column: "tenant_id"}
	err := injector.Validate(registered, missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIsolationDefect)
}

func TestContextScope(t *testing.T) {
	id := uuid.New()

	scoped := Scope(id)
	assert.True(t, scoped.Scoped())
	got, ok := scoped.TenantID()
	require.True(t, ok)
	assert.Equal(t, id, got)

	unscoped := Unscoped()
	assert.False(t, unscoped.Scoped())
	_, ok = unscoped.TenantID()
	assert.False(t, ok)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(t.Context())
	assert.False(t, ok, "absent scope must not read as unscoped")

	ctx := WithContext(t.Context(), Scope(uuid.New()))
	tc, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, tc.Scoped())
}
