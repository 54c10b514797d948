package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PermissionRepository defines the interface for permission lookups and
// policy maintenance. Enforcement reads from the database rather than
// the in-memory catalog so the stored policy is always what decides.
type PermissionRepository interface {
	RoleHasPermission(ctx context.Context, role Role, permission string) (bool, error)
	ListForRole(ctx context.Context, role Role) ([]PermissionDef, error)
	ListAll(ctx context.Context) ([]PermissionDef, error)
	SeedCatalog(ctx context.Context) error
	RebuildPolicy(ctx context.Context) error
}

// SQLitePermissionRepository implements PermissionRepository using SQLite.
type SQLitePermissionRepository struct {
	db *sql.DB
}

// NewPermissionRepository creates a new SQLite-backed permission repository.
func NewPermissionRepository(db *sql.DB) *SQLitePermissionRepository {
	return &SQLitePermissionRepository{db: db}
}

// RoleHasPermission reports whether the stored policy grants the
// permission to the role. Unknown roles and unknown permission names
// simply find no row, so the check fails closed.
func (r *SQLitePermissionRepository) RoleHasPermission(ctx context.Context, role Role, permission string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM role_permissions rp
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role = ? AND p.name = ?`,
		string(role), permission,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking role permission: %w", err)
	}
	return count > 0, nil
}

// ListForRole returns the stored permissions granted to a role.
func (r *SQLitePermissionRepository) ListForRole(ctx context.Context, role Role) ([]PermissionDef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.name, p.description
		 FROM role_permissions rp
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role = ?
		 ORDER BY p.name`, string(role))
	if err != nil {
		return nil, fmt.Errorf("listing role permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissionDefs(rows)
}

// ListAll returns the stored permission catalog.
func (r *SQLitePermissionRepository) ListAll(ctx context.Context) ([]PermissionDef, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, description FROM permissions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissionDefs(rows)
}

// SeedCatalog inserts any catalog permissions missing from the database.
// Existing rows keep their IDs; descriptions are refreshed in place.
// Safe to run on every startup.
func (r *SQLitePermissionRepository) SeedCatalog(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	for _, p := range PermissionCatalog() {
		var id string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM permissions WHERE name = ?", p.Name).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO permissions (id, name, description) VALUES (?, ?, ?)",
				"perm-"+uuid.NewString()[:8], p.Name, p.Description); err != nil {
				return fmt.Errorf("inserting permission %s: %w", p.Name, err)
			}
		case err != nil:
			return fmt.Errorf("checking permission %s: %w", p.Name, err)
		default:
			if _, err := tx.ExecContext(ctx,
				"UPDATE permissions SET description = ? WHERE id = ?",
				p.Description, id); err != nil {
				return fmt.Errorf("updating permission %s: %w", p.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog seed: %w", err)
	}
	return nil
}

// RebuildPolicy replaces all role assignments with the current
// PolicyFor output, wholesale, in one transaction. Run after
// SeedCatalog on every startup so policy changes in a new release take
// effect without manual migration.
func (r *SQLitePermissionRepository) RebuildPolicy(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning policy rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions"); err != nil {
		return fmt.Errorf("clearing role permissions: %w", err)
	}

	for _, role := range ValidRoles {
		for _, name := range PolicyFor(role) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_permissions (role, permission_id)
				 SELECT ?, id FROM permissions WHERE name = ?`,
				string(role), name); err != nil {
				return fmt.Errorf("granting %s to %s: %w", name, role, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing policy rebuild: %w", err)
	}
	return nil
}

func scanPermissionDefs(rows *sql.Rows) ([]PermissionDef, error) {
	var defs []PermissionDef
	for rows.Next() {
		var d PermissionDef
		if err := rows.Scan(&d.Name, &d.Description); err != nil {
			return nil, fmt.Errorf("scanning permission: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permissions: %w", err)
	}
	if defs == nil {
		defs = []PermissionDef{}
	}
	return defs, nil
}
