package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: export queries filter on both flags.
	`CREATE INDEX IF NOT EXISTS idx_scans_pending_export
	     ON scans(enriched, exported) WHERE exported = 0`,
	// Migration 2: sales lookups by identifier.
	`CREATE INDEX IF NOT EXISTS idx_sales_identifier ON sales(identifier)`,
}

func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
