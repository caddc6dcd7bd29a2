package workbench

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration files for this package.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// RunMigrations executes the embedded schema migrations in lexical order.
// Statements are idempotent, so running against an existing schema is safe.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	entries, err := fs.Glob(migrationsFS, "data/sql/migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)

	for _, entry := range entries {
		contents, err := migrationsFS.ReadFile(entry)
		if err != nil {
			return fmt.Errorf("workbench: read migration %s: %w", entry, err)
		}
		for _, stmt := range splitStatements(string(contents)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("workbench: apply migration %s: %w", entry, err)
			}
		}
	}
	return nil
}

// splitStatements breaks a migration script into executable statements.
// Line comments are stripped first so a ";" inside prose never truncates a
// statement.
func splitStatements(script string) []string {
	var sql strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		sql.WriteString(line)
		sql.WriteString("\n")
	}

	parts := strings.Split(sql.String(), ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
