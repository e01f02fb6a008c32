package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/db"
	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$ 203,90 ", "203.90"},
		{"203.90", "203.90"},
		{"$203.90", "203.90"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1,234", "1234"},
		{"1.234.567", "1234567"},
		{"1 234,5 $", "1234.5"},
		{"CA$12", "12"},
		{"", "0"},
		{"n/a", "0"},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if err != nil {
			t.Errorf("ParsePrice(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParsePrice("1-2"); err == nil {
		t.Error("expected error for malformed price")
	}
}

func TestReadManifest(t *testing.T) {
	in := "\ufeffPallet,UPC,Merchant SKU,Quantity,Category,Title,MSRP\n" +
		"P1,978-0-306-40615-7,SKU1,2,Books,Physics,\"$ 24,95\"\n" +
		",,,,,,\n" +
		"P1,12345,SKU2,1,Books,Short,10\n" +
		"P2,9780000000002,SKU3,x,Books,Bad qty,10\n" +
		"P2,9780000000002,SKU3,1.0,,,\n"

	recs, rowErrs, err := ReadManifest(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(recs), recs)
	}

	first := recs[0]
	if first.Identifier != "9780306406157" || first.Lot != "P1" || first.SKU != "SKU1" || first.Quantity != 2 {
		t.Errorf("unexpected record %+v", first)
	}
	if !first.ReferencePrice.Equal(decimal.RequireFromString("24.95")) {
		t.Errorf("price = %s, want 24.95", first.ReferencePrice)
	}
	if recs[1].Title != defaultTitle || recs[1].Category != defaultCategory || !recs[1].ReferencePrice.IsZero() {
		t.Errorf("expected defaults, got %+v", recs[1])
	}

	if len(rowErrs) != 2 {
		t.Fatalf("expected 2 row errors, got %v", rowErrs)
	}
	if rowErrs[0].Line != 4 || rowErrs[1].Line != 5 {
		t.Errorf("unexpected lines %v", rowErrs)
	}
}

func TestReadManifestMissingColumn(t *testing.T) {
	_, _, err := ReadManifest(strings.NewReader("Title,MSRP\nA,1\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestReadSales(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.Local)
	in := "Order number,Custom Label,Quantity sold,Price,Date,Buyer\n" +
		"01-1,9780306406157,2,\"$12.50\",2025-03-01,reader\n" +
		"01-2,9780000000002,,7,Mar-02-25,\n" +
		"01-3,,1,7,2025-03-01,x\n" +
		"01-4,9780000000002,0,7,2025-03-01,x\n" +
		"01-5,9780000000002,1,7,someday,x\n"

	sales, rowErrs, err := ReadSales(strings.NewReader(in), now)
	if err != nil {
		t.Fatalf("ReadSales: %v", err)
	}
	if len(sales) != 2 || len(rowErrs) != 3 {
		t.Fatalf("got %d sales and %v", len(sales), rowErrs)
	}

	s := sales[0]
	if s.OrderNumber != "01-1" || s.Quantity != 2 || s.Buyer != "reader" || !s.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected sale %+v", s)
	}
	if s.SoldAt.Format(time.DateOnly) != "2025-03-01" {
		t.Errorf("sold at %v", s.SoldAt)
	}
	if sales[1].Quantity != 1 || sales[1].SoldAt.Format(time.DateOnly) != "2025-03-02" {
		t.Errorf("unexpected defaults %+v", sales[1])
	}
}

type capturePublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *capturePublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, env.EventType)
	return nil
}

func TestApplySales(t *testing.T) {
	s := store.New(db.NewTestDB(t))
	ctx := context.Background()
	scan, err := s.InsertScan(ctx, model.ScanRecord{Bin: "A101", Identifier: "9780306406157", Condition: model.ConditionGood, Quantity: 2})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}

	sales := []model.Sale{
		{OrderNumber: "1", Identifier: "9780306406157", Quantity: 2, Price: decimal.RequireFromString("12.50"), SoldAt: time.Now()},
		{OrderNumber: "2", Identifier: "9789999999999", Quantity: 1, Price: decimal.RequireFromString("3"), SoldAt: time.Now()},
	}
	pub := &capturePublisher{}

	res := ApplySales(ctx, s, pub, sales)
	if res.Success || res.Imported != 1 || res.Duplicates != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Revenue.Equal(decimal.RequireFromString("25")) {
		t.Errorf("revenue = %s, want 25", res.Revenue)
	}
	if len(res.Errors) != 1 {
		t.Errorf("expected an error for the unscanned identifier, got %v", res.Errors)
	}
	if len(pub.types) != 1 || pub.types[0] != events.TypeSaleRecorded {
		t.Errorf("unexpected events %v", pub.types)
	}

	got, _ := s.GetScan(ctx, scan.ID)
	if got.QuantitySold != 2 || got.Status != model.StatusSold {
		t.Errorf("scan sold %d status %q", got.QuantitySold, got.Status)
	}

	again := ApplySales(ctx, s, nil, sales[:1])
	if again.Imported != 0 || again.Duplicates != 1 {
		t.Errorf("re-import should be skipped, got %+v", again)
	}
	got, _ = s.GetScan(ctx, scan.ID)
	if got.QuantitySold != 2 {
		t.Errorf("re-import changed sold count to %d", got.QuantitySold)
	}
}

func TestApplySalesRetriesFailedCounterUpdate(t *testing.T) {
	s := store.New(db.NewTestDB(t))
	ctx := context.Background()
	scan, err := s.InsertScan(ctx, model.ScanRecord{Bin: "A101", Identifier: "9780306406157", Condition: model.ConditionUsed, Quantity: 1})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	sales := []model.Sale{
		{OrderNumber: "5", Identifier: "9780306406157", Quantity: 1, Price: decimal.RequireFromString("7.00"), SoldAt: time.Now()},
	}

	// Make the sold counter update fail after the sale row is written.
	_, err = s.DB.ExecContext(ctx, `CREATE TRIGGER block_sold BEFORE UPDATE OF quantity_sold ON scans
		BEGIN SELECT RAISE(ABORT, 'database is locked'); END`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	res := ApplySales(ctx, s, nil, sales)
	if res.Success || res.Imported != 0 || len(res.Errors) != 1 {
		t.Fatalf("expected a failed import, got %+v", res)
	}
	if recorded, _ := store.ListSales(ctx, s.DB, "9780306406157"); len(recorded) != 0 {
		t.Fatalf("failed sale was kept: %+v", recorded)
	}

	if _, err := s.DB.ExecContext(ctx, `DROP TRIGGER block_sold`); err != nil {
		t.Fatalf("dropping trigger: %v", err)
	}

	res = ApplySales(ctx, s, nil, sales)
	if !res.Success || res.Imported != 1 || res.Duplicates != 0 {
		t.Fatalf("retry should import the sale, got %+v", res)
	}
	got, _ := s.GetScan(ctx, scan.ID)
	if got.QuantitySold != 1 || got.Status != model.StatusSold {
		t.Errorf("scan sold %d status %q", got.QuantitySold, got.Status)
	}
}
