package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugInvalidRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// MigrationFile is one goose SQL file, identified by its timestamp version.
type MigrationFile struct {
	Version string
	Name    string
}

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<slug>.sql and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(slugInvalidRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}

	full := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.Format(versionLayout), slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %[1]s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- revert %[1]s\n-- +goose StatementEnd\n", slug)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", full, err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", fmt.Errorf("write migration %q: %w", full, err)
	}
	return full, nil
}

// ValidateDir checks the migrations on disk. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := ValidateFS(os.DirFS(dir), ".")
	return err
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() ([]MigrationFile, error) {
	return ValidateFS(embedded, embeddedDir)
}

// ValidateFS requires every .sql file under root to follow the version naming
// scheme, carry both goose sections, and own a unique version. Files are
// returned in apply order.
func ValidateFS(fsys fs.FS, root string) ([]MigrationFile, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations %q: %w", root, err)
	}

	var files []MigrationFile
	owners := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			return nil, fmt.Errorf("migration %q: expected YYYYMMDDHHMMSS_name.sql", name)
		}
		if prev, dup := owners[match[1]]; dup {
			return nil, fmt.Errorf("migrations %q and %q share version %s", prev, name, match[1])
		}
		owners[match[1]] = name

		raw, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(raw), marker) {
				return nil, fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
		files = append(files, MigrationFile{Version: match[1], Name: match[2]})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", root)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
