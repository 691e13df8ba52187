package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRunRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const fileTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// Slug lowercases name and collapses anything outside [a-z0-9] into single underscores.
func Slug(name string) string {
	return strings.Trim(unsafeRunRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// Create writes an empty goose migration named <timestamp>_<slug>.sql into dir.
func Create(dir, name string, now time.Time) (string, error) {
	slug := Slug(name)
	if dir == "" || slug == "" {
		return "", fmt.Errorf("migrate: dir and a non-empty name are required (got %q)", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: mkdir %s: %w", dir, err)
	}
	full := filepath.Join(dir, now.UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("migrate: create %s: %w", full, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, fileTemplate, slug); err != nil {
		return "", fmt.Errorf("migrate: write %s: %w", full, err)
	}
	return full, nil
}

// Validate checks naming, version uniqueness and goose annotations for every
// .sql file at the root of fsys. All problems are reported together.
func Validate(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("migrate: list migrations: %w", err)
	}
	if len(names) == 0 {
		return errors.New("migrate: no migrations found")
	}

	var problems error
	versions := make(map[string]string, len(names))
	for _, name := range names {
		m := fileNameRe.FindStringSubmatch(path.Base(name))
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: want YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if _, err := time.Parse(versionLayout, m[1]); err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: version is not a timestamp", name))
		}
		if other, dup := versions[m[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], other))
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
	}
	return problems
}
