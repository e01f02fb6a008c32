package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

const scanColumns = `id, created_at, bin, identifier, condition, quantity,
	weight_major, weight_minor, length, depth, width,
	lot, sku, title, reference_price::text,
	author, publisher, publication_year, page_count, binding, language,
	description, description_html, image_url, list_price::text, category_code, condition_code, sources,
	enriched, enriched_at, exported, exported_at, quantity_sold, status`

func scanScan(row pgx.Row) (model.ScanRecord, error) {
	var s model.ScanRecord
	var cond, ref, list, sources string
	f := &s.Enrichment
	err := row.Scan(
		&s.ID, &s.CreatedAt, &s.Bin, &s.Identifier, &cond, &s.Quantity,
		&s.Dimensions.WeightMajor, &s.Dimensions.WeightMinor,
		&s.Dimensions.Length, &s.Dimensions.Depth, &s.Dimensions.Width,
		&s.Lot, &s.SKU, &s.Title, &ref,
		&f.Author, &f.Publisher, &f.PublicationYear, &f.PageCount, &f.Binding, &f.Language,
		&f.Description, &f.DescriptionHTML, &f.ImageURL, &list, &f.CategoryCode, &f.ConditionCode, &sources,
		&s.Enriched, &s.EnrichedAt, &s.Exported, &s.ExportedAt, &s.QuantitySold, &s.Status,
	)
	if err != nil {
		return s, err
	}

	s.Condition = model.Condition(cond)
	if s.ReferencePrice, err = decimal.NewFromString(ref); err != nil {
		return s, fmt.Errorf("parsing reference price: %w", err)
	}
	if f.ListPrice, err = decimal.NewFromString(list); err != nil {
		return s, fmt.Errorf("parsing list price: %w", err)
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

func (s *Store) queryScans(ctx context.Context, what, where string, args ...any) ([]model.ScanRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+scanColumns+` FROM scans WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var scans []model.ScanRecord
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scan: %w", err)
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

func (s *Store) InsertScan(ctx context.Context, sc model.ScanRecord) (*model.ScanRecord, error) {
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	if sc.Status == "" {
		sc.Status = model.StatusPending
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO scans (created_at, bin, identifier, condition, quantity,
		     weight_major, weight_minor, length, depth, width,
		     lot, sku, title, reference_price, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::numeric, $15)
		 RETURNING id`,
		sc.CreatedAt, sc.Bin, sc.Identifier, string(sc.Condition), sc.Quantity,
		sc.Dimensions.WeightMajor, sc.Dimensions.WeightMinor,
		sc.Dimensions.Length, sc.Dimensions.Depth, sc.Dimensions.Width,
		sc.Lot, sc.SKU, sc.Title, sc.ReferencePrice.String(), sc.Status,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("inserting scan: %w", err)
	}
	return s.GetScan(ctx, id)
}

func (s *Store) GetScan(ctx context.Context, id int64) (*model.ScanRecord, error) {
	sc, err := scanScan(s.pool.QueryRow(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return &sc, nil
}

func (s *Store) GetScans(ctx context.Context, identifier string) ([]model.ScanRecord, error) {
	return s.queryScans(ctx, "getting scans", "identifier = $1", identifier)
}

func (s *Store) DeleteScan(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM scans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting scan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) BinForIdentifier(ctx context.Context, identifier string) (string, error) {
	var bin string
	err := s.pool.QueryRow(ctx,
		`SELECT bin FROM scans WHERE identifier = $1 ORDER BY id LIMIT 1`, identifier,
	).Scan(&bin)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting bin for identifier: %w", err)
	}
	return bin, nil
}

func (s *Store) ListUnenriched(ctx context.Context) ([]model.ScanRecord, error) {
	return s.queryScans(ctx, "listing unenriched scans", "NOT enriched")
}

func (s *Store) ListExportable(ctx context.Context) ([]model.ScanRecord, error) {
	return s.queryScans(ctx, "listing exportable scans", "enriched AND NOT exported")
}

func (s *Store) SaveEnrichment(ctx context.Context, scanID int64, f model.EnrichedFields) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE scans SET
		     title = $1, author = $2, publisher = $3, publication_year = $4, page_count = $5,
		     binding = $6, language = $7, description = $8, description_html = $9, image_url = $10,
		     list_price = $11::numeric, category_code = $12, condition_code = $13, sources = $14,
		     enriched = true, enriched_at = $15
		 WHERE id = $16`,
		f.Title, f.Author, f.Publisher, f.PublicationYear, f.PageCount,
		f.Binding, f.Language, f.Description, f.DescriptionHTML, f.ImageURL,
		f.ListPrice.StringFixed(2), f.CategoryCode, f.ConditionCode, strings.Join(f.Sources, ","),
		time.Now().UTC(), scanID,
	)
	if err != nil {
		return fmt.Errorf("saving enrichment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkExported(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ct, err := s.pool.Exec(ctx,
		`UPDATE scans SET exported = true, exported_at = $2,
		     status = CASE WHEN status = $3 THEN $4 ELSE status END
		 WHERE id = ANY($1) AND NOT exported`,
		ids, time.Now().UTC(), model.StatusPending, model.StatusListed,
	)
	if err != nil {
		return 0, fmt.Errorf("marking scans exported: %w", err)
	}
	return int(ct.RowsAffected()), nil
}
