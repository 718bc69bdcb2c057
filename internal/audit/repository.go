package audit

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit entries from the audit_logs table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func timelineQuery(filters TimelineFilters) (string, []any) {
	var (
		where []string
		args  []any
	)
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		where = append(where, "occurred_at >= $"+strconv.Itoa(len(args)))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		where = append(where, "occurred_at <= $"+strconv.Itoa(len(args)))
	}
	if actor := strings.TrimSpace(filters.Actor); actor != "" {
		args = append(args, actor)
		where = append(where, "actor_id::text = $"+strconv.Itoa(len(args)))
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		args = append(args, entity)
		where = append(where, "entity = $"+strconv.Itoa(len(args)))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		args = append(args, action)
		where = append(where, "action = $"+strconv.Itoa(len(args)))
	}

	sql := "SELECT occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY occurred_at DESC"
	return sql, args
}

func (r *PGRepository) query(ctx context.Context, sql string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &row.Meta); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// TimelineWindow returns one page of audit entries, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	sql, args := timelineQuery(filters)
	sql += " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	return r.query(ctx, sql, args)
}

// TimelineAll returns every matching audit entry.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	sql, args := timelineQuery(filters)
	return r.query(ctx, sql, args)
}
