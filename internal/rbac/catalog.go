package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/registry"
)

// LoadRegistries builds the navigation and action registries from the
// persisted permission catalog. Every symbolic key must have a catalog row;
// a missing row is a configuration failure that must abort startup, since
// authorization cannot resolve that key afterwards. Catalog rows whose name
// no longer matches a known key are skipped with a warning so old rows do
// not break deploys.
func LoadRegistries(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*registry.Registry[authz.Navigation], *registry.Registry[authz.Action], error) {
	navMappings := make(map[authz.Navigation]uuid.UUID)
	if err := loadCatalog(ctx, pool, `SELECT id, name FROM navigation_nodes`, func(id uuid.UUID, name string) {
		if nav, ok := authz.ParseNavigation(name); ok {
			navMappings[nav] = id
		} else if logger != nil {
			logger.Warn("unknown navigation node in catalog", slog.String("name", name))
		}
	}); err != nil {
		return nil, nil, err
	}
	for _, nav := range authz.Navigations() {
		if _, ok := navMappings[nav]; !ok {
			return nil, nil, fmt.Errorf("rbac: navigation %q missing from catalog", nav)
		}
	}

	actionMappings := make(map[authz.Action]uuid.UUID)
	if err := loadCatalog(ctx, pool, `SELECT id, name FROM permission_actions`, func(id uuid.UUID, name string) {
		if action, ok := authz.ParseAction(name); ok {
			actionMappings[action] = id
		} else if logger != nil {
			logger.Warn("unknown action in catalog", slog.String("name", name))
		}
	}); err != nil {
		return nil, nil, err
	}
	for _, action := range authz.Actions() {
		if _, ok := actionMappings[action]; !ok {
			return nil, nil, fmt.Errorf("rbac: action %q missing from catalog", action)
		}
	}

	navigations := registry.New[authz.Navigation]()
	if err := navigations.Initialize(navMappings); err != nil {
		return nil, nil, fmt.Errorf("rbac: initialize navigation registry: %w", err)
	}
	actions := registry.New[authz.Action]()
	if err := actions.Initialize(actionMappings); err != nil {
		return nil, nil, fmt.Errorf("rbac: initialize action registry: %w", err)
	}
	return navigations, actions, nil
}

// SyncCatalog inserts catalog rows for symbolic keys that have none yet.
// Identifiers are assigned once on first insert and never change. Returns
// the number of rows created. Driven at first boot and by the background
// worker.
func SyncCatalog(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var created int64
	for _, nav := range authz.Navigations() {
		tag, err := pool.Exec(ctx,
			`INSERT INTO navigation_nodes (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			uuid.New(), string(nav))
		if err != nil {
			return created, fmt.Errorf("rbac: sync navigation %q: %w", nav, err)
		}
		created += tag.RowsAffected()
	}
	for _, action := range authz.Actions() {
		tag, err := pool.Exec(ctx,
			`INSERT INTO permission_actions (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			uuid.New(), string(action))
		if err != nil {
			return created, fmt.Errorf("rbac: sync action %q: %w", action, err)
		}
		created += tag.RowsAffected()
	}
	return created, nil
}

func loadCatalog(ctx context.Context, pool *pgxpool.Pool, sql string, visit func(uuid.UUID, string)) error {
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("rbac: load catalog: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   uuid.UUID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("rbac: scan catalog row: %w", err)
		}
		visit(id, name)
	}
	return rows.Err()
}
