package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/db"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/store"
)

func newRecorder(t *testing.T) (*Recorder, *store.SQLite) {
	t.Helper()
	s := store.New(db.NewTestDB(t))
	r, err := New(s, config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, s
}

func TestValidate(t *testing.T) {
	r, _ := newRecorder(t)

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"valid", Input{Bin: "c001", Identifier: "9780306406157", Condition: "used"}, nil},
		{"short identifier", Input{Bin: "C001", Identifier: "12345", Condition: "USED"}, ErrInvalidIdentifier},
		{"letters in identifier", Input{Bin: "C001", Identifier: "ABC1234567890", Condition: "USED"}, ErrInvalidIdentifier},
		{"bad bin", Input{Bin: "CC01", Identifier: "9780306406157", Condition: "USED"}, ErrInvalidBin},
		{"long bin", Input{Bin: "C00001", Identifier: "9780306406157", Condition: "USED"}, ErrInvalidBin},
		{"bad condition", Input{Bin: "C001", Identifier: "9780306406157", Condition: "MINT"}, ErrInvalidCondition},
		{"negative quantity", Input{Bin: "C001", Identifier: "9780306406157", Condition: "NEW", Quantity: -1}, ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.Validate(tt.in)
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecordCopiesInventory(t *testing.T) {
	r, s := newRecorder(t)
	ctx := context.Background()
	s.UpsertInventory(ctx, []model.InventoryRecord{
		{Identifier: "9780306406157", Lot: "P1", SKU: "S1", Title: "Physics", ReferencePrice: decimal.RequireFromString("24.95")},
	})

	scan, err := r.Record(ctx, Input{Bin: "c001", Identifier: "9780306406157", Condition: "good"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if scan.Bin != "C001" || scan.Condition != model.ConditionGood || scan.Quantity != 1 {
		t.Errorf("unexpected scan %+v", scan)
	}
	if scan.Title != "Physics" || scan.Lot != "P1" || !scan.ReferencePrice.Equal(decimal.RequireFromString("24.95")) {
		t.Errorf("inventory snippet not copied: %+v", scan)
	}
}

func TestRecordRejectsBinConflict(t *testing.T) {
	r, _ := newRecorder(t)
	ctx := context.Background()

	if _, err := r.Record(ctx, Input{Bin: "C001", Identifier: "9780306406157", Condition: "USED"}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if _, err := r.Record(ctx, Input{Bin: "C001", Identifier: "9780306406157", Condition: "NEW", Quantity: 2}); err != nil {
		t.Errorf("same bin should be accepted: %v", err)
	}
	_, err := r.Record(ctx, Input{Bin: "D002", Identifier: "9780306406157", Condition: "USED"})
	if !errors.Is(err, ErrBinConflict) {
		t.Errorf("expected ErrBinConflict, got %v", err)
	}
}

func TestRecordReusesDimensions(t *testing.T) {
	r, _ := newRecorder(t)
	ctx := context.Background()
	measured := model.Dimensions{WeightMinor: 750, Length: 23, Depth: 2, Width: 15}

	first, err := r.Record(ctx, Input{Bin: "C001", Identifier: "9780306406157", Condition: "USED", Dimensions: &measured})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if first.Dimensions != measured {
		t.Errorf("got %+v, want %+v", first.Dimensions, measured)
	}

	second, err := r.Record(ctx, Input{Bin: "C001", Identifier: "9780306406157", Condition: "GOOD"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if second.Dimensions != measured {
		t.Errorf("cached dimensions not reused: %+v", second.Dimensions)
	}

	other := model.Dimensions{WeightMinor: 100}
	third, _ := r.Record(ctx, Input{Bin: "C001", Identifier: "9780306406157", Condition: "NEW", Dimensions: &other})
	if third.Dimensions != measured {
		t.Errorf("cache should be written once, got %+v", third.Dimensions)
	}
}

func TestParseLine(t *testing.T) {
	r, _ := newRecorder(t)

	tests := []struct {
		line string
		want Input
		ok   bool
	}{
		{"C001 9781234567890 USED", Input{Bin: "C001", Identifier: "9781234567890", Condition: "USED", Quantity: 1}, true},
		{"i004,9780123456789,new", Input{Bin: "I004", Identifier: "9780123456789", Condition: "NEW", Quantity: 1}, true},
		{"GOOD 9780123456789 Z9999", Input{Bin: "Z9999", Identifier: "9780123456789", Condition: "GOOD", Quantity: 1}, true},
		{"C001 9781234567890", Input{}, false},
		{"", Input{}, false},
	}

	for _, tt := range tests {
		got, err := r.ParseLine(tt.line)
		if tt.ok != (err == nil) {
			t.Errorf("ParseLine(%q) error = %v, want ok=%v", tt.line, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseDimensions(t *testing.T) {
	d, err := ParseDimensions("0;750;23;2,5;15")
	if err != nil {
		t.Fatalf("ParseDimensions: %v", err)
	}
	want := model.Dimensions{WeightMinor: 750, Length: 23, Depth: 2.5, Width: 15}
	if d != want {
		t.Errorf("got %+v, want %+v", d, want)
	}

	for _, bad := range []string{"1;2;3", "a;1;1;1;1", "0;-1;1;1;1"} {
		if _, err := ParseDimensions(bad); err == nil {
			t.Errorf("ParseDimensions(%q) should fail", bad)
		}
	}
}
