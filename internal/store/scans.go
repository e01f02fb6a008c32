package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/bookbin/internal/model"
)

const scanColumns = `id, created_at, bin, identifier, condition, quantity,
	weight_major, weight_minor, length, depth, width,
	lot, sku, title, reference_price,
	author, publisher, publication_year, page_count, binding, language,
	description, description_html, image_url, list_price, category_code, condition_code, sources,
	enriched, enriched_at, exported, exported_at, quantity_sold, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(rs rowScanner) (model.ScanRecord, error) {
	var s model.ScanRecord
	var sources string
	f := &s.Enrichment
	err := rs.Scan(
		&s.ID, &s.CreatedAt, &s.Bin, &s.Identifier, &s.Condition, &s.Quantity,
		&s.Dimensions.WeightMajor, &s.Dimensions.WeightMinor,
		&s.Dimensions.Length, &s.Dimensions.Depth, &s.Dimensions.Width,
		&s.Lot, &s.SKU, &s.Title, &s.ReferencePrice,
		&f.Author, &f.Publisher, &f.PublicationYear, &f.PageCount, &f.Binding, &f.Language,
		&f.Description, &f.DescriptionHTML, &f.ImageURL, &f.ListPrice, &f.CategoryCode, &f.ConditionCode, &sources,
		&s.Enriched, &s.EnrichedAt, &s.Exported, &s.ExportedAt, &s.QuantitySold, &s.Status,
	)
	if err != nil {
		return s, err
	}

	f.Identifier = s.Identifier
	f.Title = s.Title
	f.Condition = s.Condition
	f.ReferencePrice = s.ReferencePrice
	if sources != "" {
		f.Sources = strings.Split(sources, ",")
	}
	return s, nil
}

func queryScans(ctx context.Context, db *sql.DB, what, where string, args ...any) ([]model.ScanRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE `+where+` ORDER BY id`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var scans []model.ScanRecord
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scan: %w", err)
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// InsertScan stores a new scan. A zero CreatedAt is set to now.
func InsertScan(ctx context.Context, db *sql.DB, s model.ScanRecord) (*model.ScanRecord, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = model.StatusPending
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO scans (created_at, bin, identifier, condition, quantity,
		     weight_major, weight_minor, length, depth, width,
		     lot, sku, title, reference_price, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.CreatedAt, s.Bin, s.Identifier, string(s.Condition), s.Quantity,
		s.Dimensions.WeightMajor, s.Dimensions.WeightMinor,
		s.Dimensions.Length, s.Dimensions.Depth, s.Dimensions.Width,
		s.Lot, s.SKU, s.Title, s.ReferencePrice.String(), s.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting scan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting scan id: %w", err)
	}
	return GetScan(ctx, db, id)
}

// GetScan returns a scan by id, or nil.
func GetScan(ctx context.Context, db *sql.DB, id int64) (*model.ScanRecord, error) {
	s, err := scanScan(db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return &s, nil
}

// GetScans returns all scans of identifier in scan order.
func GetScans(ctx context.Context, db *sql.DB, identifier string) ([]model.ScanRecord, error) {
	return queryScans(ctx, db, "getting scans", "identifier = ?", identifier)
}

// DeleteScan removes a scan (undo).
func DeleteScan(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting scan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// BinForIdentifier returns the bin already holding identifier, or "".
func BinForIdentifier(ctx context.Context, db *sql.DB, identifier string) (string, error) {
	var bin string
	err := db.QueryRowContext(ctx,
		`SELECT bin FROM scans WHERE identifier = ? ORDER BY id LIMIT 1`, identifier,
	).Scan(&bin)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting bin for identifier: %w", err)
	}
	return bin, nil
}

// ListUnenriched returns scans still waiting for enrichment.
func ListUnenriched(ctx context.Context, db *sql.DB) ([]model.ScanRecord, error) {
	return queryScans(ctx, db, "listing unenriched scans", "enriched = 0")
}

// ListExportable returns enriched scans not yet exported.
func ListExportable(ctx context.Context, db *sql.DB) ([]model.ScanRecord, error) {
	return queryScans(ctx, db, "listing exportable scans", "enriched = 1 AND exported = 0")
}

// SaveEnrichment writes merged fields onto a scan and flags it enriched.
// Re-enrichment overwrites earlier values.
func SaveEnrichment(ctx context.Context, db *sql.DB, scanID int64, f model.EnrichedFields) error {
	res, err := db.ExecContext(ctx,
		`UPDATE scans SET
		     title = ?, author = ?, publisher = ?, publication_year = ?, page_count = ?,
		     binding = ?, language = ?, description = ?, description_html = ?, image_url = ?,
		     list_price = ?, category_code = ?, condition_code = ?, sources = ?,
		     enriched = 1, enriched_at = ?
		 WHERE id = ?`,
		f.Title, f.Author, f.Publisher, f.PublicationYear, f.PageCount,
		f.Binding, f.Language, f.Description, f.DescriptionHTML, f.ImageURL,
		f.ListPrice.StringFixed(2), f.CategoryCode, f.ConditionCode, strings.Join(f.Sources, ","),
		time.Now().UTC(), scanID,
	)
	if err != nil {
		return fmt.Errorf("saving enrichment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkExported flags scans as exported and listed. Already exported scans
// are left untouched. Returns the number of scans changed.
func MarkExported(ctx context.Context, db *sql.DB, ids []int64) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	marked := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE scans SET exported = 1, exported_at = ?,
			     status = CASE WHEN status = ? THEN ? ELSE status END
			 WHERE id = ? AND exported = 0`,
			now, model.StatusPending, model.StatusListed, id,
		)
		if err != nil {
			return 0, fmt.Errorf("marking scan %d exported: %w", id, err)
		}
		n, _ := res.RowsAffected()
		marked += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing export marks: %w", err)
	}
	return marked, nil
}
