package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/erazemk/bookbin/internal/isbn"
	"github.com/erazemk/bookbin/internal/model"
)

const (
	defaultCategory = "Books"
	defaultTitle    = "Untitled"
)

// ReadManifest reads a supplier manifest. Rows with an invalid identifier
// or quantity are reported and skipped; a missing identifier column or a
// malformed file fails the whole read.
func ReadManifest(r io.Reader) ([]model.InventoryRecord, []RowError, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, nil, err
	}
	upc, err := t.require("UPC", "Identifier", "ISBN")
	if err != nil {
		return nil, nil, err
	}
	lot := t.column("Pallet", "Lot")
	sku := t.column("Merchant SKU", "SKU")
	qty := t.column("Quantity", "Qty")
	category := t.column("Category")
	title := t.column("Title")
	msrp := t.column("MSRP", "Price", "Retail Price")

	var recs []model.InventoryRecord
	var rowErrs []RowError
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading manifest line %d: %w", t.line+1, err)
		}

		id := digitsOnly(get(rec, upc))
		if !isbn.Validate(id) {
			rowErrs = append(rowErrs, RowError{Line: t.line, Reason: fmt.Sprintf("invalid identifier %q", get(rec, upc))})
			continue
		}

		inv := model.InventoryRecord{
			Identifier: id,
			Lot:        get(rec, lot),
			SKU:        get(rec, sku),
			Category:   orDefault(get(rec, category), defaultCategory),
			Title:      orDefault(get(rec, title), defaultTitle),
		}
		if s := get(rec, qty); s != "" {
			f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
			if err != nil || f < 0 {
				rowErrs = append(rowErrs, RowError{Line: t.line, Reason: fmt.Sprintf("invalid quantity %q", s)})
				continue
			}
			inv.Quantity = int(f)
		}
		price, err := ParsePrice(get(rec, msrp))
		if err != nil || price.IsNegative() {
			rowErrs = append(rowErrs, RowError{Line: t.line, Reason: fmt.Sprintf("invalid price %q", get(rec, msrp))})
			continue
		}
		inv.ReferencePrice = price

		recs = append(recs, inv)
	}
	return recs, rowErrs, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
