package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlas-mdm/atlas-mdm/internal/tenant"
)

// Querier is the subset of pgx execution methods the scoped session needs.
// Both *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ScopedSession executes statements against tenant-scoped tables with the
// tenant predicate injected by one generic code path. It is bound exactly
// once, when the data-access session opens, and every statement issued
// through it afterwards is confined to that binding's tenant. Repositories
// never write tenant filters themselves.
type ScopedSession struct {
	q        Querier
	tc       tenant.Context
	injector *tenant.Injector
}

// BindTenantScope binds a querier to a tenant scope for the lifetime of the
// returned session. An unscoped Context yields full-catalog visibility and
// must only be bound on trusted system paths.
func BindTenantScope(q Querier, tc tenant.Context, injector *tenant.Injector) *ScopedSession {
	return &ScopedSession{q: q, tc: tc, injector: injector}
}

// Tenant returns the scope the session was bound to.
func (s *ScopedSession) Tenant() tenant.Context {
	return s.tc
}

// SelectStmt describes a read against one tenant-scoped table. Where
// conditions use $1..$n placeholders matching Args order; the tenant
// predicate is appended automatically.
type SelectStmt struct {
	From    tenant.Model
	Columns []string
	Where   []string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

// Select runs the statement and returns the row set.
func (s *ScopedSession) Select(ctx context.Context, stmt SelectStmt) (pgx.Rows, error) {
	sql, args, err := s.buildSelect(stmt)
	if err != nil {
		return nil, err
	}
	return s.q.Query(ctx, sql, args...)
}

// Get runs the statement expecting a single row.
func (s *ScopedSession) Get(ctx context.Context, stmt SelectStmt) (pgx.Row, error) {
	sql, args, err := s.buildSelect(stmt)
	if err != nil {
		return nil, err
	}
	return s.q.QueryRow(ctx, sql, args...), nil
}

// InsertStmt describes an insert into one tenant-scoped table. When the
// session is scoped, the tenant column and value are appended automatically;
// callers never supply them.
type InsertStmt struct {
	Into      tenant.Model
	Columns   []string
	Args      []any
	Returning string
}

// Insert runs the statement.
func (s *ScopedSession) Insert(ctx context.Context, stmt InsertStmt) error {
	sql, args, err := s.buildInsert(stmt)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, sql, args...)
	return err
}

// InsertReturning runs the statement with its RETURNING clause and yields
// the produced row.
func (s *ScopedSession) InsertReturning(ctx context.Context, stmt InsertStmt) (pgx.Row, error) {
	if stmt.Returning == "" {
		return nil, fmt.Errorf("db: insert into %s: returning clause required", tableOf(stmt.Into))
	}
	sql, args, err := s.buildInsert(stmt)
	if err != nil {
		return nil, err
	}
	return s.q.QueryRow(ctx, sql, args...), nil
}

// UpdateStmt describes an update of one tenant-scoped table. Set and Where
// share the $1..$n numbering of Args; the tenant predicate is appended.
type UpdateStmt struct {
	Table tenant.Model
	Set   []string
	Where []string
	Args  []any
}

// Update runs the statement and returns the number of affected rows.
func (s *ScopedSession) Update(ctx context.Context, stmt UpdateStmt) (int64, error) {
	where, args, err := s.scope(stmt.Table, stmt.Where, stmt.Args)
	if err != nil {
		return 0, err
	}
	sql := "UPDATE " + tableOf(stmt.Table) + " SET " + strings.Join(stmt.Set, ", ") + whereClause(where)
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteStmt describes a delete from one tenant-scoped table.
type DeleteStmt struct {
	From  tenant.Model
	Where []string
	Args  []any
}

// Delete runs the statement and returns the number of affected rows.
func (s *ScopedSession) Delete(ctx context.Context, stmt DeleteStmt) (int64, error) {
	where, args, err := s.scope(stmt.From, stmt.Where, stmt.Args)
	if err != nil {
		return 0, err
	}
	sql := "DELETE FROM " + tableOf(stmt.From) + whereClause(where)
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// scope appends the tenant predicate for the model's table. A scoped table
// that was never registered with the injector fails loudly instead of
// silently returning cross-tenant rows.
func (s *ScopedSession) scope(m tenant.Model, where []string, args []any) ([]string, []any, error) {
	table := tableOf(m)
	descriptor, ok := s.injector.Descriptor(table)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", tenant.ErrIsolationDefect, table)
	}
	id, scoped := s.tc.TenantID()
	if !scoped {
		return where, args, nil
	}
	args = append(append([]any{}, args...), id)
	where = append(append([]string{}, where...), descriptor.Column+" = $"+strconv.Itoa(len(args)))
	return where, args, nil
}

func (s *ScopedSession) buildSelect(stmt SelectStmt) (string, []any, error) {
	where, args, err := s.scope(stmt.From, stmt.Where, stmt.Args)
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(stmt.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(tableOf(stmt.From))
	b.WriteString(whereClause(where))
	if stmt.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(stmt.OrderBy)
	}
	if stmt.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(stmt.Limit))
	}
	if stmt.Offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(stmt.Offset))
	}
	return b.String(), args, nil
}

func (s *ScopedSession) buildInsert(stmt InsertStmt) (string, []any, error) {
	table := tableOf(stmt.Into)
	descriptor, ok := s.injector.Descriptor(table)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", tenant.ErrIsolationDefect, table)
	}

	columns := append([]string{}, stmt.Columns...)
	args := append([]any{}, stmt.Args...)
	if id, scoped := s.tc.TenantID(); scoped {
		columns = append(columns, descriptor.Column)
		args = append(args, id)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(placeholders, ", "))
	b.WriteString(")")
	if stmt.Returning != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(stmt.Returning)
	}
	return b.String(), args, nil
}

func tableOf(m tenant.Model) string {
	table, _ := m.TenantScopedTable()
	return table
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}
