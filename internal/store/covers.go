package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveCover stores or replaces the cover thumbnail of identifier.
func SaveCover(ctx context.Context, db *sql.DB, identifier string, image []byte, mime, sourceURL string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO covers (identifier, image, image_mime, source_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT (identifier) DO UPDATE SET
		     image = excluded.image,
		     image_mime = excluded.image_mime,
		     source_url = excluded.source_url,
		     updated_at = CURRENT_TIMESTAMP`,
		identifier, image, mime, sourceURL,
	)
	if err != nil {
		return fmt.Errorf("saving cover: %w", err)
	}
	return nil
}

// GetCover returns a cover's image data and MIME type. Data is nil if none
// is stored.
func GetCover(ctx context.Context, db *sql.DB, identifier string) ([]byte, string, error) {
	var image []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM covers WHERE identifier = ?`, identifier,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting cover: %w", err)
	}
	return image, mime, nil
}
