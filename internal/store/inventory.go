package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/bookbin/internal/model"
)

// UpsertInventory inserts manifest records, replacing existing identifiers.
func UpsertInventory(ctx context.Context, db *sql.DB, recs []model.InventoryRecord) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO inventory (identifier, lot, sku, quantity, category, title, reference_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (identifier) DO UPDATE SET
		     lot = excluded.lot,
		     sku = excluded.sku,
		     quantity = excluded.quantity,
		     category = excluded.category,
		     title = excluded.title,
		     reference_price = excluded.reference_price,
		     imported_at = CURRENT_TIMESTAMP`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing inventory upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err := stmt.ExecContext(ctx,
			r.Identifier, r.Lot, r.SKU, r.Quantity, r.Category, r.Title, r.ReferencePrice.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("upserting inventory %s: %w", r.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing inventory: %w", err)
	}
	return len(recs), nil
}

// GetInventory returns the manifest record for identifier, or nil.
func GetInventory(ctx context.Context, db *sql.DB, identifier string) (*model.InventoryRecord, error) {
	var r model.InventoryRecord
	err := db.QueryRowContext(ctx,
		`SELECT identifier, lot, sku, quantity, category, title, reference_price
		 FROM inventory WHERE identifier = ?`, identifier,
	).Scan(&r.Identifier, &r.Lot, &r.SKU, &r.Quantity, &r.Category, &r.Title, &r.ReferencePrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting inventory: %w", err)
	}
	return &r, nil
}
