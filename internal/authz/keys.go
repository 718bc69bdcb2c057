package authz

import "strings"

// Navigation identifies a menu/resource node subject to access control.
type Navigation string

// Closed set of navigation nodes. New nodes must also be seeded into the
// permission catalog so the registries can resolve them.
const (
	NavDashboard  Navigation = "Dashboard"
	NavProducts   Navigation = "Products"
	NavSuppliers  Navigation = "Suppliers"
	NavWarehouses Navigation = "Warehouses"
	NavCategories Navigation = "Categories"
	NavUnits      Navigation = "Units"
	NavTaxes      Navigation = "Taxes"
	NavUsers      Navigation = "Users"
	NavRoles      Navigation = "Roles"
	NavAuditLog   Navigation = "AuditLog"
)

// Action identifies a permission verb.
type Action string

const (
	ActionView   Action = "View"
	ActionAdd    Action = "Add"
	ActionEdit   Action = "Edit"
	ActionDelete Action = "Delete"
	ActionExport Action = "Export"
)

// Navigations returns every known navigation node.
func Navigations() []Navigation {
	return []Navigation{
		NavDashboard,
		NavProducts,
		NavSuppliers,
		NavWarehouses,
		NavCategories,
		NavUnits,
		NavTaxes,
		NavUsers,
		NavRoles,
		NavAuditLog,
	}
}

// Actions returns every known permission verb.
func Actions() []Action {
	return []Action{ActionView, ActionAdd, ActionEdit, ActionDelete, ActionExport}
}

// ParseNavigation matches s against the known navigation nodes,
// case-insensitively. The second result reports whether s matched.
func ParseNavigation(s string) (Navigation, bool) {
	for _, nav := range Navigations() {
		if strings.EqualFold(s, string(nav)) {
			return nav, true
		}
	}
	return "", false
}

// ParseAction matches s against the known permission verbs, case-insensitively.
func ParseAction(s string) (Action, bool) {
	for _, action := range Actions() {
		if strings.EqualFold(s, string(action)) {
			return action, true
		}
	}
	return "", false
}
