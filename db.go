package workbench

import (
	"database/sql"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// OpenBunDB wraps a host-owned *sql.DB in a bun handle using the dialect
// matching the configured storage driver. The host keeps ownership of the
// underlying connection pool.
func OpenBunDB(sqldb *sql.DB, driver string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres":
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, ErrStorageDriverUnknown
	}
}
