package ledger

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

type DBDriver string

const (
	DBSQLite   DBDriver = "sqlite"
	DBPostgres DBDriver = "postgres"
)

func ParseDriver(s string) (DBDriver, error) {
	if _, err := dialectFor(DBDriver(s)); err != nil {
		return "", err
	}
	return DBDriver(s), nil
}

// dialect holds the per-driver statements for the version table.
type dialect struct {
	dir         string
	createTable string
	markApplied string
	appliedAt   func(time.Time) any
}

var dialects = map[DBDriver]dialect{
	DBSQLite: {
		dir: "migrations/sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  applied_at TEXT NOT NULL
)`,
		markApplied: `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?) ON CONFLICT(version) DO NOTHING`,
		appliedAt:   func(t time.Time) any { return t.Format(time.RFC3339) },
	},
	DBPostgres: {
		dir: "migrations/postgres",
		createTable: `CREATE TABLE IF NOT EXISTS specgate_schema_migrations (
  version TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL
)`,
		markApplied: `INSERT INTO specgate_schema_migrations(version, applied_at) VALUES($1, $2) ON CONFLICT(version) DO NOTHING`,
		appliedAt:   func(t time.Time) any { return t },
	},
}

func dialectFor(driver DBDriver) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported db driver: %s", driver)
	}
	return d, nil
}

type migration struct {
	version string
	body    string
}

// Migrate applies the embedded migrations for driver in version order.
// Each migration runs in its own transaction together with its version
// row, so a rerun skips everything already applied.
func Migrate(db *sql.DB, driver DBDriver) error {
	if db == nil {
		return fmt.Errorf("missing db")
	}
	d, err := dialectFor(driver)
	if err != nil {
		return err
	}
	if _, err := db.Exec(d.createTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	migrations, err := loadMigrations(d.dir)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, m := range migrations {
		if err := apply(db, d, m, now); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
	}
	return nil
}

func apply(db *sql.DB, d dialect, m migration, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(d.markApplied, m.version, d.appliedAt(now))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return nil
	}

	if _, err := tx.Exec(m.body); err != nil {
		return err
	}
	return tx.Commit()
}

func loadMigrations(dir string) ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		body, err := migrationsFS.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: strings.TrimSuffix(e.Name(), ".sql"), body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
