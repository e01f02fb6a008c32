package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/bookbin/internal/model"
)

// GetDimensions returns cached dimensions for identifier. When the cache has
// no entry, the latest scan with measurements is used and copied into the
// cache. Returns nil if nothing was ever measured.
func GetDimensions(ctx context.Context, db *sql.DB, identifier string) (*model.Dimensions, error) {
	var d model.Dimensions
	err := db.QueryRowContext(ctx,
		`SELECT weight_major, weight_minor, length, depth, width
		 FROM dimensions WHERE identifier = ?`, identifier,
	).Scan(&d.WeightMajor, &d.WeightMinor, &d.Length, &d.Depth, &d.Width)
	if err == nil {
		return &d, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("getting dimensions: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT weight_major, weight_minor, length, depth, width
		 FROM scans
		 WHERE identifier = ?
		   AND (weight_major > 0 OR weight_minor > 0 OR length > 0 OR depth > 0 OR width > 0)
		 ORDER BY id DESC LIMIT 1`, identifier,
	).Scan(&d.WeightMajor, &d.WeightMinor, &d.Length, &d.Depth, &d.Width)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting dimensions from scans: %w", err)
	}

	if err := SaveDimensions(ctx, db, identifier, d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveDimensions stores or replaces the cached dimensions for identifier.
func SaveDimensions(ctx context.Context, db *sql.DB, identifier string, d model.Dimensions) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO dimensions (identifier, weight_major, weight_minor, length, depth, width)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (identifier) DO UPDATE SET
		     weight_major = excluded.weight_major,
		     weight_minor = excluded.weight_minor,
		     length = excluded.length,
		     depth = excluded.depth,
		     width = excluded.width,
		     updated_at = CURRENT_TIMESTAMP`,
		identifier, d.WeightMajor, d.WeightMinor, d.Length, d.Depth, d.Width,
	)
	if err != nil {
		return fmt.Errorf("saving dimensions: %w", err)
	}
	return nil
}
