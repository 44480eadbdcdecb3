// Package migrate wraps goose for the SQL migrations under migrations/.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `migrate create` writes new files, relative to the
// repository root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source is a set of migration files: a directory inside FS.
type Source struct {
	FS  fs.FS
	Dir string
}

// Embedded returns the migrations compiled into the binary.
func Embedded() Source {
	return Source{FS: embedded, Dir: "migrations"}
}

// FromDisk reads migrations from dir at run time.
func FromDisk(dir string) Source {
	return Source{FS: os.DirFS(dir), Dir: "."}
}

// DialectFor maps a DB driver name onto the goose dialect.
func DialectFor(driver string) goose.Dialect {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3
	default:
		return goose.DialectPostgres
	}
}

func newProvider(db *sql.DB, dialect goose.Dialect, src Source) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	sub, err := fs.Sub(src.FS, src.Dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations %q: %w", src.Dir, err)
	}
	return goose.NewProvider(dialect, db, sub)
}

// Up applies every pending migration and returns how many ran.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect, src Source) (int, error) {
	p, err := newProvider(db, dialect, src)
	if err != nil {
		return 0, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, dialect goose.Dialect, src Source) error {
	p, err := newProvider(db, dialect, src)
	if err != nil {
		return err
	}
	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status lists every known migration with its applied state.
func Status(ctx context.Context, db *sql.DB, dialect goose.Dialect, src Source) ([]*goose.MigrationStatus, error) {
	p, err := newProvider(db, dialect, src)
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

// MigrateTo moves the schema up or down to target, a YYYYMMDDHHMMSS version.
func MigrateTo(ctx context.Context, db *sql.DB, dialect goose.Dialect, src Source, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	p, err := newProvider(db, dialect, src)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < version:
		_, err = p.UpTo(ctx, version)
	case current > version:
		_, err = p.DownTo(ctx, version)
	}
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", version, err)
	}
	return nil
}
