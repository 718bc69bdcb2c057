package masterdata

import "github.com/atlas-mdm/atlas-mdm/internal/tenant"

// model tags one master-data table as tenant-scoped. Every entity type in
// this package carries its tenant id in the tenant_id column, so a single
// descriptor shape covers them all.
type model struct {
	table string
}

func (m model) TenantScopedTable() (string, string) {
	return m.table, "tenant_id"
}

// Tenant-scoped entity descriptors registered with the filter injector.
var (
	ProductModel   tenant.Model = model{table: "products"}
	SupplierModel  tenant.Model = model{table: "suppliers"}
	WarehouseModel tenant.Model = model{table: "warehouses"}
	CategoryModel  tenant.Model = model{table: "categories"}
	UnitModel      tenant.Model = model{table: "units"}
	TaxModel       tenant.Model = model{table: "taxes"}
)

// Models enumerates every tenant-scoped entity descriptor in this module.
// Startup registers and validates them against the filter injector before
// any request is served.
func Models() []tenant.Model {
	return []tenant.Model{
		ProductModel,
		SupplierModel,
		WarehouseModel,
		CategoryModel,
		UnitModel,
		TaxModel,
	}
}
