// Package intake validates and records physical scans.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/isbn"
	"github.com/erazemk/bookbin/internal/model"
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidBin        = errors.New("invalid bin")
	ErrInvalidCondition  = errors.New("invalid condition")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	// ErrBinConflict means the identifier is already stored in another bin.
	ErrBinConflict = errors.New("identifier already stored in another bin")
)

// Store is the part of the record store intake needs.
type Store interface {
	GetInventory(ctx context.Context, identifier string) (*model.InventoryRecord, error)
	BinForIdentifier(ctx context.Context, identifier string) (string, error)
	InsertScan(ctx context.Context, s model.ScanRecord) (*model.ScanRecord, error)
	GetDimensions(ctx context.Context, identifier string) (*model.Dimensions, error)
	SaveDimensions(ctx context.Context, identifier string, d model.Dimensions) error
}

// Input is one scan as entered by an operator.
type Input struct {
	Bin        string            `json:"bin"`
	Identifier string            `json:"identifier"`
	Condition  string            `json:"condition"`
	Quantity   int               `json:"quantity"`
	Dimensions *model.Dimensions `json:"dimensions,omitempty"`
}

// Recorder turns validated input into scan records.
type Recorder struct {
	store Store
	bin   *regexp.Regexp
}

// New returns a Recorder validating bins against cfg.BinPattern.
func New(store Store, cfg config.Config) (*Recorder, error) {
	re, err := regexp.Compile(cfg.BinPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling bin pattern: %w", err)
	}
	return &Recorder{store: store, bin: re}, nil
}

// ValidBin reports whether bin matches the configured bin pattern.
func (r *Recorder) ValidBin(bin string) bool {
	return r.bin.MatchString(strings.ToUpper(strings.TrimSpace(bin)))
}

// Validate normalizes in and checks every field. It does not touch the
// store.
func (r *Recorder) Validate(in Input) (Input, model.Condition, error) {
	in.Bin = strings.ToUpper(strings.TrimSpace(in.Bin))
	in.Identifier = strings.TrimSpace(in.Identifier)
	if in.Quantity == 0 {
		in.Quantity = 1
	}

	if !isbn.Validate(in.Identifier) {
		return in, "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, in.Identifier)
	}
	if !r.bin.MatchString(in.Bin) {
		return in, "", fmt.Errorf("%w: %q", ErrInvalidBin, in.Bin)
	}
	cond, err := model.ParseCondition(in.Condition)
	if err != nil {
		return in, "", fmt.Errorf("%w: %q", ErrInvalidCondition, in.Condition)
	}
	if in.Quantity < 0 {
		return in, "", ErrInvalidQuantity
	}
	return in, cond, nil
}

// Record stores a scan. All scans of an identifier must share one bin.
// Dimensions measured on the first scan of an identifier are cached and
// reused for later scans.
func (r *Recorder) Record(ctx context.Context, in Input) (*model.ScanRecord, error) {
	in, cond, err := r.Validate(in)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.BinForIdentifier(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}
	if existing != "" && existing != in.Bin {
		return nil, fmt.Errorf("%w: %s is in %s", ErrBinConflict, in.Identifier, existing)
	}

	scan := model.ScanRecord{
		Bin:        in.Bin,
		Identifier: in.Identifier,
		Condition:  cond,
		Quantity:   in.Quantity,
	}

	inv, err := r.store.GetInventory(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		scan.Lot = inv.Lot
		scan.SKU = inv.SKU
		scan.Title = inv.Title
		scan.ReferencePrice = inv.ReferencePrice
	} else {
		slog.Warn("scanned identifier not in manifest", "identifier", in.Identifier, "bin", in.Bin)
	}

	cached, err := r.store.GetDimensions(ctx, in.Identifier)
	if err != nil {
		return nil, err
	}
	switch {
	case cached != nil:
		scan.Dimensions = *cached
	case in.Dimensions != nil && !in.Dimensions.IsZero():
		scan.Dimensions = *in.Dimensions
		if err := r.store.SaveDimensions(ctx, in.Identifier, *in.Dimensions); err != nil {
			return nil, err
		}
	}

	saved, err := r.store.InsertScan(ctx, scan)
	if err != nil {
		return nil, err
	}
	slog.Info("scan recorded", "id", saved.ID, "identifier", saved.Identifier, "bin", saved.Bin, "condition", saved.Condition)
	return saved, nil
}
