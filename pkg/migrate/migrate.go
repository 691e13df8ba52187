// Package migrate applies the goose SQL migrations compiled into the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// SourceDir is where new migration files are written, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded migration set rooted at the sql files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Dialect maps a db driver name onto the goose dialect. The SQL targets Postgres;
// sqlite is accepted so local tooling can point at a scratch file.
func Dialect(driver string) goose.Dialect {
	if driver == "sqlite" || driver == "sqlite3" {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// Step is one applied or reverted migration.
type Step struct {
	Version   int64
	Path      string
	Direction string
	Duration  time.Duration
}

// State reports whether a migration has been applied.
type State struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner drives a goose provider over a single database.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, driver string, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	if fsys == nil {
		fsys = Migrations()
	}
	provider, err := goose.NewProvider(Dialect(driver), db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: build provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) ([]Step, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return steps(results), fmt.Errorf("migrate up: %w", err)
	}
	return steps(results), nil
}

// Down reverts the most recent migration.
func (r *Runner) Down(ctx context.Context) ([]Step, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate down: %w", err)
	}
	return steps([]*goose.MigrationResult{result}), nil
}

// To moves the schema up or down until raw, a YYYYMMDDHHMMSS version, is current.
func (r *Runner) To(ctx context.Context, raw string) ([]Step, error) {
	target, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || target < 0 {
		return nil, fmt.Errorf("migrate: invalid version %q", raw)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case target > current:
		results, err = r.provider.UpTo(ctx, target)
	case target < current:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return steps(results), fmt.Errorf("migrate to %d: %w", target, err)
	}
	return steps(results), nil
}

// Status lists every known migration in version order.
func (r *Runner) Status(ctx context.Context) ([]State, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]State, 0, len(statuses))
	for _, s := range statuses {
		if s == nil || s.Source == nil {
			continue
		}
		out = append(out, State{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func steps(results []*goose.MigrationResult) []Step {
	out := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Step{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return out
}
