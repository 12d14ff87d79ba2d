package sqlstore

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// RunMigrations applies every pending .sql file of migrationsFS in name
// order, each in its own transaction. It returns the names it applied.
func RunMigrations(db *sql.DB, driver string, migrationsFS fs.FS) ([]string, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	var done []string
	for _, name := range files {
		if applied[name] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, name)
		if err != nil {
			return done, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return done, fmt.Errorf("failed to start transaction for %s: %w", name, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return done, fmt.Errorf("failed to execute migration %s: %w", name, err)
		}

		if _, err := tx.Exec(rebind(driver, "INSERT INTO schema_migrations (version) VALUES (?)"), name); err != nil {
			_ = tx.Rollback()
			return done, fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return done, fmt.Errorf("failed to commit migration %s: %w", name, err)
		}
		done = append(done, name)
	}

	return done, nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
