package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

// newTestStore connects to BOOKBIN_TEST_POSTGRES_DSN and empties every
// table. The database is shared, so these tests must not run in parallel.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("BOOKBIN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BOOKBIN_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(s.Close)

	if _, err := s.pool.Exec(ctx, `TRUNCATE inventory, scans, dimensions, sales, covers RESTART IDENTITY`); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	return s
}

func TestInventoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.UpsertInventory(ctx, []model.InventoryRecord{
		{Identifier: "9780000000002", Lot: "P1", Title: "T", ReferencePrice: decimal.RequireFromString("20.00")},
	})
	if err != nil || n != 1 {
		t.Fatalf("UpsertInventory: %d, %v", n, err)
	}

	inv, err := s.GetInventory(ctx, "9780000000002")
	if err != nil || inv == nil {
		t.Fatalf("GetInventory: %+v, %v", inv, err)
	}
	if inv.Title != "T" || !inv.ReferencePrice.Equal(decimal.NewFromInt(20)) {
		t.Errorf("unexpected record %+v", inv)
	}

	missing, err := s.GetInventory(ctx, "9789999999999")
	if err != nil || missing != nil {
		t.Errorf("expected nil, got %+v, %v", missing, err)
	}
}

func TestScanLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	scan, err := s.InsertScan(ctx, model.ScanRecord{
		Bin: "A101", Identifier: "9780000000002", Condition: model.ConditionGood, Quantity: 2,
		ReferencePrice: decimal.RequireFromString("20"),
	})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	if scan.Status != model.StatusPending || scan.Condition != model.ConditionGood {
		t.Errorf("unexpected scan %+v", scan)
	}

	bin, _ := s.BinForIdentifier(ctx, "9780000000002")
	if bin != "A101" {
		t.Errorf("bin = %q", bin)
	}

	err = s.SaveEnrichment(ctx, scan.ID, model.EnrichedFields{
		Title: "T", Author: "A", ListPrice: decimal.RequireFromString("10"), Sources: []string{"inventory"},
	})
	if err != nil {
		t.Fatalf("SaveEnrichment: %v", err)
	}
	if err := s.SaveEnrichment(ctx, scan.ID+100, model.EnrichedFields{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	exportable, err := s.ListExportable(ctx)
	if err != nil || len(exportable) != 1 {
		t.Fatalf("ListExportable: %d, %v", len(exportable), err)
	}
	if !exportable[0].Enrichment.ListPrice.Equal(decimal.NewFromInt(10)) || exportable[0].EnrichedAt == nil {
		t.Errorf("unexpected enrichment %+v", exportable[0].Enrichment)
	}

	n, err := s.MarkExported(ctx, []int64{scan.ID})
	if err != nil || n != 1 {
		t.Fatalf("MarkExported: %d, %v", n, err)
	}
	if n, _ := s.MarkExported(ctx, []int64{scan.ID}); n != 0 {
		t.Errorf("re-marking changed %d rows", n)
	}

	if err := s.IncrementSold(ctx, "9780000000002", 2); err != nil {
		t.Fatalf("IncrementSold: %v", err)
	}
	got, _ := s.GetScan(ctx, scan.ID)
	if got.Status != model.StatusSold || got.QuantitySold != 2 || !got.Exported {
		t.Errorf("unexpected final scan %+v", got)
	}

	if err := s.DeleteScan(ctx, scan.ID); err != nil {
		t.Fatalf("DeleteScan: %v", err)
	}
	if err := s.DeleteScan(ctx, scan.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSalesAndDimensions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sale := model.Sale{OrderNumber: "1", Identifier: "9780000000002", Quantity: 1, Price: decimal.RequireFromString("9.99"), SoldAt: time.Now()}
	if ok, err := s.InsertSale(ctx, sale); err != nil || !ok {
		t.Fatalf("InsertSale: %v, %v", ok, err)
	}
	if ok, _ := s.InsertSale(ctx, sale); ok {
		t.Error("duplicate sale inserted")
	}

	d := model.Dimensions{WeightMinor: 300, Length: 20, Depth: 1.5, Width: 13}
	if err := s.SaveDimensions(ctx, "9780000000002", d); err != nil {
		t.Fatalf("SaveDimensions: %v", err)
	}
	got, err := s.GetDimensions(ctx, "9780000000002")
	if err != nil || got == nil || *got != d {
		t.Errorf("GetDimensions = %+v, %v", got, err)
	}

	if err := s.SaveCover(ctx, "9780000000002", []byte{1, 2}, "image/jpeg", ""); err != nil {
		t.Fatalf("SaveCover: %v", err)
	}
	data, mime, err := s.GetCover(ctx, "9780000000002")
	if err != nil || len(data) != 2 || mime != "image/jpeg" {
		t.Errorf("GetCover = %v %q %v", data, mime, err)
	}
}

func TestRecordSaleRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sale := model.Sale{OrderNumber: "9", Identifier: "9780306406157", Quantity: 1, Price: decimal.RequireFromString("5.00"), SoldAt: time.Now()}

	if ok, err := s.RecordSale(ctx, sale); ok || !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("RecordSale without scans = %v, %v", ok, err)
	}

	scan, err := s.InsertScan(ctx, model.ScanRecord{Bin: "A101", Identifier: sale.Identifier, Condition: model.ConditionUsed, Quantity: 1})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	if ok, err := s.RecordSale(ctx, sale); err != nil || !ok {
		t.Fatalf("RecordSale = %v, %v", ok, err)
	}
	if ok, _ := s.RecordSale(ctx, sale); ok {
		t.Error("duplicate sale recorded")
	}
	got, _ := s.GetScan(ctx, scan.ID)
	if got.QuantitySold != 1 || got.Status != model.StatusSold {
		t.Errorf("scan sold %d status %q", got.QuantitySold, got.Status)
	}
}
