package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

func (s *Store) UpsertInventory(ctx context.Context, recs []model.InventoryRecord) (int, error) {
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(
			`INSERT INTO inventory (identifier, lot, sku, quantity, category, title, reference_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
			 ON CONFLICT (identifier) DO UPDATE SET
			     lot = excluded.lot,
			     sku = excluded.sku,
			     quantity = excluded.quantity,
			     category = excluded.category,
			     title = excluded.title,
			     reference_price = excluded.reference_price,
			     imported_at = now()`,
			r.Identifier, r.Lot, r.SKU, r.Quantity, r.Category, r.Title, r.ReferencePrice.String(),
		)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("upserting inventory: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing inventory: %w", err)
	}
	return len(recs), nil
}

func (s *Store) GetInventory(ctx context.Context, identifier string) (*model.InventoryRecord, error) {
	var r model.InventoryRecord
	var price string
	err := s.pool.QueryRow(ctx,
		`SELECT identifier, lot, sku, quantity, category, title, reference_price::text
		 FROM inventory WHERE identifier = $1`, identifier,
	).Scan(&r.Identifier, &r.Lot, &r.SKU, &r.Quantity, &r.Category, &r.Title, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory: %w", err)
	}
	if r.ReferencePrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parsing reference price: %w", err)
	}
	return &r, nil
}

func (s *Store) GetDimensions(ctx context.Context, identifier string) (*model.Dimensions, error) {
	var d model.Dimensions
	err := s.pool.QueryRow(ctx,
		`SELECT weight_major, weight_minor, length, depth, width
		 FROM dimensions WHERE identifier = $1`, identifier,
	).Scan(&d.WeightMajor, &d.WeightMinor, &d.Length, &d.Depth, &d.Width)
	if err == nil {
		return &d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting dimensions: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT weight_major, weight_minor, length, depth, width
		 FROM scans
		 WHERE identifier = $1
		   AND (weight_major > 0 OR weight_minor > 0 OR length > 0 OR depth > 0 OR width > 0)
		 ORDER BY id DESC LIMIT 1`, identifier,
	).Scan(&d.WeightMajor, &d.WeightMinor, &d.Length, &d.Depth, &d.Width)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting dimensions from scans: %w", err)
	}
	if err := s.SaveDimensions(ctx, identifier, d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) SaveDimensions(ctx context.Context, identifier string, d model.Dimensions) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dimensions (identifier, weight_major, weight_minor, length, depth, width)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (identifier) DO UPDATE SET
		     weight_major = excluded.weight_major,
		     weight_minor = excluded.weight_minor,
		     length = excluded.length,
		     depth = excluded.depth,
		     width = excluded.width,
		     updated_at = now()`,
		identifier, d.WeightMajor, d.WeightMinor, d.Length, d.Depth, d.Width,
	)
	if err != nil {
		return fmt.Errorf("saving dimensions: %w", err)
	}
	return nil
}

func (s *Store) InsertSale(ctx context.Context, sale model.Sale) (bool, error) {
	return insertSale(ctx, s.pool, sale)
}

// execer is satisfied by the pool and by pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSale(ctx context.Context, q execer, sale model.Sale) (bool, error) {
	ct, err := q.Exec(ctx,
		`INSERT INTO sales (order_number, identifier, quantity, price, sold_at, buyer)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6)
		 ON CONFLICT (order_number, identifier) DO NOTHING`,
		sale.OrderNumber, sale.Identifier, sale.Quantity, sale.Price.StringFixed(2), sale.SoldAt.UTC(), sale.Buyer,
	)
	if err != nil {
		return false, fmt.Errorf("inserting sale: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// RecordSale inserts sale and updates the sold counters in one transaction.
// A failed counter update discards the sale as well.
func (s *Store) RecordSale(ctx context.Context, sale model.Sale) (bool, error) {
	if sale.Quantity <= 0 {
		return false, fmt.Errorf("quantity must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertSale(ctx, tx, sale)
	if err != nil || !inserted {
		return false, err
	}
	if err := incrementSold(ctx, tx, sale.Identifier, sale.Quantity); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing sale: %w", err)
	}
	return true, nil
}

func (s *Store) IncrementSold(ctx context.Context, identifier string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := incrementSold(ctx, tx, identifier, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func incrementSold(ctx context.Context, tx pgx.Tx, identifier string, qty int) error {
	rows, err := tx.Query(ctx,
		`SELECT id, quantity, quantity_sold FROM scans WHERE identifier = $1 ORDER BY id FOR UPDATE`, identifier,
	)
	if err != nil {
		return fmt.Errorf("loading sold counters: %w", err)
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SoldSlot, error) {
		var sl store.SoldSlot
		err := row.Scan(&sl.ID, &sl.Quantity, &sl.Sold)
		return sl, err
	})
	if err != nil {
		return fmt.Errorf("loading sold counters: %w", err)
	}
	if len(slots) == 0 {
		return store.ErrNotFound
	}

	for _, i := range store.DistributeSold(slots, qty) {
		sl := slots[i]
		_, err := tx.Exec(ctx,
			`UPDATE scans SET quantity_sold = $1,
			     status = CASE WHEN $1 >= quantity THEN $2 ELSE status END
			 WHERE id = $3`,
			sl.Sold, model.StatusSold, sl.ID,
		)
		if err != nil {
			return fmt.Errorf("updating sold counter: %w", err)
		}
	}
	return nil
}

func (s *Store) SaveCover(ctx context.Context, identifier string, image []byte, mime, sourceURL string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO covers (identifier, image, image_mime, source_url) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (identifier) DO UPDATE SET
		     image = excluded.image,
		     image_mime = excluded.image_mime,
		     source_url = excluded.source_url,
		     updated_at = now()`,
		identifier, image, mime, sourceURL,
	)
	if err != nil {
		return fmt.Errorf("saving cover: %w", err)
	}
	return nil
}

func (s *Store) GetCover(ctx context.Context, identifier string) ([]byte, string, error) {
	var image []byte
	var mime string
	err := s.pool.QueryRow(ctx,
		`SELECT image, image_mime FROM covers WHERE identifier = $1`, identifier,
	).Scan(&image, &mime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting cover: %w", err)
	}
	return image, mime, nil
}
