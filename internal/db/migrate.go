package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies every .sql file in lexical order. When dir points at an
// existing directory its files win over the embedded set, which lets a deployment
// patch the schema without rebuilding the binary.
func RunMigrations(db *sql.DB, dir string) error {
	var (
		fsys fs.FS
		root string
	)
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			fsys, root = os.DirFS(dir), "."
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat migrations dir: %w", err)
		}
	}
	if fsys == nil {
		fsys, root = embeddedMigrations, "migrations"
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := fs.ReadFile(fsys, filepath.Join(root, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if len(stmt) == 0 {
			continue
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}
	return nil
}
