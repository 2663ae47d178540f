package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the "migrate:up" half of every dbmate migration that has
// not been recorded in schema_migrations yet. It shares dbmate's bookkeeping
// table, so the two can be mixed.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(128) PRIMARY KEY)`); err != nil {
		return err
	}

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		version := migrationVersion(name)
		var n int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version=?`, version).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		src, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upSection(string(src))); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// migrationVersion is the numeric prefix dbmate records, e.g. 20250101000000.
func migrationVersion(path string) string {
	base := path[strings.LastIndex(path, "/")+1:]
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, ".sql")
}

func upSection(src string) string {
	const up, down = "-- migrate:up", "-- migrate:down"
	if i := strings.Index(src, up); i >= 0 {
		src = src[i+len(up):]
	}
	if i := strings.Index(src, down); i >= 0 {
		src = src[:i]
	}
	return src
}
