package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/db"
	"github.com/erazemk/bookbin/internal/model"
)

func TestUpsertAndGetInventory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n, err := UpsertInventory(ctx, database, []model.InventoryRecord{
		{Identifier: "9780000000002", Lot: "P1", SKU: "S1", Quantity: 2, Title: "T", ReferencePrice: decimal.RequireFromString("20.00")},
		{Identifier: "9780306406157", Title: "Other", ReferencePrice: decimal.RequireFromString("12.5")},
	})
	if err != nil {
		t.Fatalf("UpsertInventory: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 upserted, got %d", n)
	}

	inv, err := GetInventory(ctx, database, "9780000000002")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if inv == nil {
		t.Fatal("expected inventory record")
	}
	if inv.Title != "T" || inv.Lot != "P1" || inv.Quantity != 2 {
		t.Errorf("unexpected record %+v", inv)
	}
	if !inv.ReferencePrice.Equal(decimal.RequireFromString("20")) {
		t.Errorf("expected price 20, got %s", inv.ReferencePrice)
	}
}

func TestUpsertInventoryReplaces(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	UpsertInventory(ctx, database, []model.InventoryRecord{{Identifier: "9780000000002", Title: "Old"}})
	UpsertInventory(ctx, database, []model.InventoryRecord{{Identifier: "9780000000002", Title: "New", ReferencePrice: decimal.NewFromInt(5)}})

	inv, _ := GetInventory(ctx, database, "9780000000002")
	if inv == nil || inv.Title != "New" || !inv.ReferencePrice.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected replaced record, got %+v", inv)
	}
}

func TestGetInventoryMissing(t *testing.T) {
	database := db.NewTestDB(t)

	inv, err := GetInventory(context.Background(), database, "9789999999999")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if inv != nil {
		t.Errorf("expected nil, got %+v", inv)
	}
}
