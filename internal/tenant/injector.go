package tenant

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIsolationDefect indicates a tenant-scoped model reached the data layer
// without a registered filter descriptor. This is a startup/model-validation
// failure: serving requests in that state risks cross-tenant leakage.
var ErrIsolationDefect = errors.New("tenant: scoped model without registered filter")

// Model is the capability implemented by every tenant-scoped entity
// descriptor: it names the table and the column carrying the tenant id.
// One generic filter covers all implementations; there is no per-type code.
type Model interface {
	TenantScopedTable() (table, column string)
}

// Descriptor is a registered tenant filter for one table.
type Descriptor struct {
	Table  string
	Column string
}

// Injector holds the filter descriptors for all tenant-scoped models.
// It is populated once at model-initialization time, before any request is
// served, and read concurrently afterwards.
type Injector struct {
	mu          sync.Mutex
	descriptors map[string]Descriptor
}

// NewInjector returns an empty injector.
func NewInjector() *Injector {
	return &Injector{descriptors: make(map[string]Descriptor)}
}

// Register adds the filter descriptor for one model. Registering the same
// table twice is a wiring error.
func (i *Injector) Register(m Model) error {
	table, column := m.TenantScopedTable()
	if table == "" || column == "" {
		return fmt.Errorf("tenant: model %T has empty table or column", m)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.descriptors[table]; ok {
		return fmt.Errorf("tenant: table %q registered twice", table)
	}
	i.descriptors[table] = Descriptor{Table: table, Column: column}
	return nil
}

// RegisterAll registers every model, stopping at the first failure.
func (i *Injector) RegisterAll(models ...Model) error {
	for _, m := range models {
		if err := i.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Descriptor returns the registered filter for a table.
func (i *Injector) Descriptor(table string) (Descriptor, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	d, ok := i.descriptors[table]
	return d, ok
}

// Validate confirms that every given model has a registered descriptor.
// Call it at startup after model enumeration; a miss aborts the process.
func (i *Injector) Validate(models ...Model) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, m := range models {
		table, _ := m.TenantScopedTable()
		if _, ok := i.descriptors[table]; !ok {
			return fmt.Errorf("%w: %s", ErrIsolationDefect, table)
		}
	}
	return nil
}
