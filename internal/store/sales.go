package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/bookbin/internal/model"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertSale records a sale. It reports false if the same order line was
// already imported.
func InsertSale(ctx context.Context, db *sql.DB, s model.Sale) (bool, error) {
	return insertSale(ctx, db, s)
}

func insertSale(ctx context.Context, q execer, s model.Sale) (bool, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO sales (order_number, identifier, quantity, price, sold_at, buyer)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (order_number, identifier) DO NOTHING`,
		s.OrderNumber, s.Identifier, s.Quantity, s.Price.StringFixed(2), s.SoldAt.UTC(), s.Buyer,
	)
	if err != nil {
		return false, fmt.Errorf("inserting sale: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecordSale inserts a sale and adds it to the sold counters in one
// transaction. It reports false, changing nothing, for an order line that
// was already recorded. When the counters cannot be updated the sale is not
// kept either, so importing the report again retries it.
func RecordSale(ctx context.Context, db *sql.DB, s model.Sale) (bool, error) {
	if s.Quantity <= 0 {
		return false, fmt.Errorf("quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertSale(ctx, tx, s)
	if err != nil || !inserted {
		return false, err
	}
	if err := incrementSold(ctx, tx, s.Identifier, s.Quantity); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing sale: %w", err)
	}
	return true, nil
}

// ListSales returns all sales of identifier, oldest first.
func ListSales(ctx context.Context, db *sql.DB, identifier string) ([]model.Sale, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT order_number, identifier, quantity, price, sold_at, buyer
		 FROM sales WHERE identifier = ? ORDER BY sold_at, id`, identifier,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(&s.OrderNumber, &s.Identifier, &s.Quantity, &s.Price, &s.SoldAt, &s.Buyer); err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// SoldSlot is the sold counter of one scan.
type SoldSlot struct {
	ID       int64
	Quantity int
	Sold     int
}

// DistributeSold adds qty to slots in order, filling each scan up to its
// quantity. Whatever does not fit goes to the last scan. It returns the
// indexes of the slots it changed.
func DistributeSold(slots []SoldSlot, qty int) []int {
	var changed []int
	for i := range slots {
		if qty == 0 {
			break
		}
		room := slots[i].Quantity - slots[i].Sold
		if room <= 0 {
			continue
		}
		take := min(room, qty)
		slots[i].Sold += take
		qty -= take
		changed = append(changed, i)
	}
	if qty > 0 && len(slots) > 0 {
		last := len(slots) - 1
		slots[last].Sold += qty
		if len(changed) == 0 || changed[len(changed)-1] != last {
			changed = append(changed, last)
		}
	}
	return changed
}

// IncrementSold adds qty to the sold counters of identifier's scans and
// marks scans whose counter reached their quantity as sold.
func IncrementSold(ctx context.Context, db *sql.DB, identifier string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := incrementSold(ctx, tx, identifier, qty); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sold counters: %w", err)
	}
	return nil
}

func incrementSold(ctx context.Context, tx *sql.Tx, identifier string, qty int) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, quantity, quantity_sold FROM scans WHERE identifier = ? ORDER BY id`, identifier,
	)
	if err != nil {
		return fmt.Errorf("loading sold counters: %w", err)
	}
	var slots []SoldSlot
	for rows.Next() {
		var s SoldSlot
		if err := rows.Scan(&s.ID, &s.Quantity, &s.Sold); err != nil {
			rows.Close()
			return fmt.Errorf("scanning sold counter: %w", err)
		}
		slots = append(slots, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading sold counters: %w", err)
	}
	if len(slots) == 0 {
		return ErrNotFound
	}

	for _, i := range DistributeSold(slots, qty) {
		s := slots[i]
		_, err := tx.ExecContext(ctx,
			`UPDATE scans SET quantity_sold = ?,
			     status = CASE WHEN ? >= quantity THEN ? ELSE status END
			 WHERE id = ?`,
			s.Sold, s.Sold, model.StatusSold, s.ID,
		)
		if err != nil {
			return fmt.Errorf("updating sold counter: %w", err)
		}
	}
	return nil
}
