package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

// SalesStore is the part of the record store sales ingestion needs.
type SalesStore interface {
	// RecordSale stores s and updates the sold counters atomically. It
	// reports false for an order line that was already recorded.
	RecordSale(ctx context.Context, s model.Sale) (bool, error)
}

// saleDateLayouts are tried in order on the sale date column.
var saleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"Jan-02-06",
	"Jan 2, 2006",
	"01/02/2006",
}

// ReadSales reads a marketplace sales report. Column names follow the
// marketplace's order report, with a few older aliases.
func ReadSales(r io.Reader, now time.Time) ([]model.Sale, []RowError, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, nil, err
	}
	label, err := t.require("Custom label (SKU)", "Custom Label")
	if err != nil {
		return nil, nil, err
	}
	order := t.column("Order Number")
	qty := t.column("Quantity", "Quantity sold")
	price := t.column("Sale Price", "Price")
	date := t.column("Sale Date", "Date")
	buyer := t.column("Buyer Username", "Buyer")

	var sales []model.Sale
	var rowErrs []RowError
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading sales line %d: %w", t.line+1, err)
		}

		s := model.Sale{
			OrderNumber: get(rec, order),
			Identifier:  digitsOnly(get(rec, label)),
			Quantity:    1,
			SoldAt:      now,
			Buyer:       get(rec, buyer),
		}
		if s.Identifier == "" {
			rowErrs = append(rowErrs, RowError{Line: t.line, Reason: "missing identifier"})
			continue
		}
		if v := get(rec, qty); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				rowErrs = append(rowErrs, RowError{Line: t.line, Reason: fmt.Sprintf("invalid quantity %q", v)})
				continue
			}
			s.Quantity = n
		}
		p, err := ParsePrice(get(rec, price))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: t.line, Reason: err.Error()})
			continue
		}
		s.Price = p
		if v := get(rec, date); v != "" {
			d, ok := parseSaleDate(v)
			if !ok {
				rowErrs = append(rowErrs, RowError{Line: t.line, Reason: fmt.Sprintf("invalid sale date %q", v)})
				continue
			}
			s.SoldAt = d
		}

		sales = append(sales, s)
	}
	return sales, rowErrs, nil
}

func parseSaleDate(s string) (time.Time, bool) {
	for _, layout := range saleDateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return d, true
		}
	}
	// Reports sometimes append a zone name, e.g. "Mar-01-25 10:15:00 PST".
	if i := strings.IndexByte(s, ' '); i > 0 {
		if d, err := time.ParseInLocation("Jan-02-06", s[:i], time.Local); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// SalesResult reports a sales import.
type SalesResult struct {
	Success    bool            `json:"success"`
	Imported   int             `json:"imported"`
	Duplicates int             `json:"duplicates"`
	Revenue    decimal.Decimal `json:"revenue"`
	Errors     []string        `json:"errors,omitempty"`
	Message    string          `json:"message"`
}

// ApplySales records sales and adds them to the sold counters of the
// matching scans. Sales imported before are skipped, and a sale whose
// counters could not be updated is not kept, so a report can be applied
// again safely.
func ApplySales(ctx context.Context, st SalesStore, pub events.Publisher, sales []model.Sale) SalesResult {
	res := SalesResult{Revenue: decimal.Zero}
	for _, s := range sales {
		inserted, err := st.RecordSale(ctx, s)
		if errors.Is(err, store.ErrNotFound) {
			res.Errors = append(res.Errors, fmt.Sprintf("order %s (%s): no scans for identifier", s.OrderNumber, s.Identifier))
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("order %s (%s): %v", s.OrderNumber, s.Identifier, err))
			continue
		}
		if !inserted {
			res.Duplicates++
			continue
		}

		res.Imported++
		res.Revenue = res.Revenue.Add(s.Price.Mul(decimal.NewFromInt(int64(s.Quantity))))

		err = events.Emit(ctx, pub, events.TypeSaleRecorded, s.Identifier, events.SaleRecordedPayload{
			OrderNumber: s.OrderNumber,
			Identifier:  s.Identifier,
			Quantity:    s.Quantity,
			Price:       s.Price,
			SoldAt:      s.SoldAt,
		})
		if err != nil {
			slog.Warn("publishing sale event", "identifier", s.Identifier, "error", err)
		}
	}

	res.Success = len(res.Errors) == 0
	res.Message = fmt.Sprintf("%d sale(s) imported, %d already known, %d failed, revenue %s",
		res.Imported, res.Duplicates, len(res.Errors), res.Revenue.StringFixed(2))
	slog.Info("sales imported", "imported", res.Imported, "duplicates", res.Duplicates, "errors", len(res.Errors))
	return res
}
