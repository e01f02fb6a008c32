// Package store persists inventory, scans, dimensions, sales and covers in
// SQLite.
//
// Functions take the *sql.DB explicitly. SQLite wraps them as a Repository
// for the pipeline packages.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/erazemk/bookbin/internal/model"
)

// ErrNotFound is returned by updates that matched no row.
var ErrNotFound = errors.New("not found")

// Repository is the record store the pipeline runs against.
type Repository interface {
	UpsertInventory(ctx context.Context, recs []model.InventoryRecord) (int, error)
	GetInventory(ctx context.Context, identifier string) (*model.InventoryRecord, error)

	InsertScan(ctx context.Context, s model.ScanRecord) (*model.ScanRecord, error)
	GetScan(ctx context.Context, id int64) (*model.ScanRecord, error)
	GetScans(ctx context.Context, identifier string) ([]model.ScanRecord, error)
	DeleteScan(ctx context.Context, id int64) error
	BinForIdentifier(ctx context.Context, identifier string) (string, error)

	ListUnenriched(ctx context.Context) ([]model.ScanRecord, error)
	SaveEnrichment(ctx context.Context, scanID int64, f model.EnrichedFields) error
	ListExportable(ctx context.Context) ([]model.ScanRecord, error)
	MarkExported(ctx context.Context, ids []int64) (int, error)

	GetDimensions(ctx context.Context, identifier string) (*model.Dimensions, error)
	SaveDimensions(ctx context.Context, identifier string, d model.Dimensions) error

	InsertSale(ctx context.Context, s model.Sale) (bool, error)
	RecordSale(ctx context.Context, s model.Sale) (bool, error)
	IncrementSold(ctx context.Context, identifier string, qty int) error

	SaveCover(ctx context.Context, identifier string, image []byte, mime, sourceURL string) error
	GetCover(ctx context.Context, identifier string) ([]byte, string, error)

	Ping(ctx context.Context) error
}

// SQLite implements Repository on top of the package functions.
type SQLite struct {
	DB *sql.DB
}

var _ Repository = (*SQLite)(nil)

// New wraps an open database.
func New(db *sql.DB) *SQLite {
	return &SQLite{DB: db}
}

func (s *SQLite) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *SQLite) UpsertInventory(ctx context.Context, recs []model.InventoryRecord) (int, error) {
	return UpsertInventory(ctx, s.DB, recs)
}

func (s *SQLite) GetInventory(ctx context.Context, identifier string) (*model.InventoryRecord, error) {
	return GetInventory(ctx, s.DB, identifier)
}

func (s *SQLite) InsertScan(ctx context.Context, scan model.ScanRecord) (*model.ScanRecord, error) {
	return InsertScan(ctx, s.DB, scan)
}

func (s *SQLite) GetScan(ctx context.Context, id int64) (*model.ScanRecord, error) {
	return GetScan(ctx, s.DB, id)
}

func (s *SQLite) GetScans(ctx context.Context, identifier string) ([]model.ScanRecord, error) {
	return GetScans(ctx, s.DB, identifier)
}

func (s *SQLite) DeleteScan(ctx context.Context, id int64) error {
	return DeleteScan(ctx, s.DB, id)
}

func (s *SQLite) BinForIdentifier(ctx context.Context, identifier string) (string, error) {
	return BinForIdentifier(ctx, s.DB, identifier)
}

func (s *SQLite) ListUnenriched(ctx context.Context) ([]model.ScanRecord, error) {
	return ListUnenriched(ctx, s.DB)
}

func (s *SQLite) SaveEnrichment(ctx context.Context, scanID int64, f model.EnrichedFields) error {
	return SaveEnrichment(ctx, s.DB, scanID, f)
}

func (s *SQLite) ListExportable(ctx context.Context) ([]model.ScanRecord, error) {
	return ListExportable(ctx, s.DB)
}

func (s *SQLite) MarkExported(ctx context.Context, ids []int64) (int, error) {
	return MarkExported(ctx, s.DB, ids)
}

func (s *SQLite) GetDimensions(ctx context.Context, identifier string) (*model.Dimensions, error) {
	return GetDimensions(ctx, s.DB, identifier)
}

func (s *SQLite) SaveDimensions(ctx context.Context, identifier string, d model.Dimensions) error {
	return SaveDimensions(ctx, s.DB, identifier, d)
}

func (s *SQLite) InsertSale(ctx context.Context, sale model.Sale) (bool, error) {
	return InsertSale(ctx, s.DB, sale)
}

func (s *SQLite) RecordSale(ctx context.Context, sale model.Sale) (bool, error) {
	return RecordSale(ctx, s.DB, sale)
}

func (s *SQLite) IncrementSold(ctx context.Context, identifier string, qty int) error {
	return IncrementSold(ctx, s.DB, identifier, qty)
}

func (s *SQLite) SaveCover(ctx context.Context, identifier string, image []byte, mime, sourceURL string) error {
	return SaveCover(ctx, s.DB, identifier, image, mime, sourceURL)
}

func (s *SQLite) GetCover(ctx context.Context, identifier string) ([]byte, string, error) {
	return GetCover(ctx, s.DB, identifier)
}
