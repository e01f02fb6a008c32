package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/listing"
	"github.com/erazemk/bookbin/internal/model"
)

// Store is the part of the record store exports need.
type Store interface {
	ListExportable(ctx context.Context) ([]model.ScanRecord, error)
	MarkExported(ctx context.Context, ids []int64) (int, error)
}

// Options selects what Run exports.
type Options struct {
	// Date limits the export to scans created on that local calendar day.
	// Nil exports everything pending.
	Date *time.Time
	// Dir is the output directory. Empty means the working directory.
	Dir string
}

// Result reports an export run.
type Result struct {
	Success  bool    `json:"success"`
	Outcome  string  `json:"outcome"`
	Count    int     `json:"count"`
	Quantity int     `json:"quantity"`
	Marked   int     `json:"marked"`
	Path     string  `json:"path,omitempty"`
	Message  string  `json:"message"`
	Skipped  []Group `json:"skipped,omitempty"`
}

// Readiness summarizes what an export would pick up.
type Readiness struct {
	Ready    bool   `json:"ready"`
	Count    int    `json:"count"`
	LowPrice int    `json:"low_price"`
	Message  string `json:"message"`
}

// Exporter writes listing files for pending scans.
type Exporter struct {
	store   Store
	listing *listing.Builder
	cfg     config.Config
	pub     events.Publisher
	loc     *time.Location
	now     func() time.Time
}

// New returns an Exporter. A nil publisher drops events.
func New(store Store, lb *listing.Builder, cfg config.Config, pub events.Publisher) *Exporter {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Exporter{store: store, listing: lb, cfg: cfg, pub: pub, loc: time.Local, now: time.Now}
}

// pending returns exportable scans, optionally limited to one local day.
func (e *Exporter) pending(ctx context.Context, date *time.Time) ([]model.ScanRecord, error) {
	recs, err := e.store.ListExportable(ctx)
	if err != nil {
		return nil, err
	}
	if date == nil {
		return recs, nil
	}

	day := date.Format(time.DateOnly)
	var out []model.ScanRecord
	for _, r := range recs {
		if r.CreatedAt.In(e.loc).Format(time.DateOnly) == day {
			out = append(out, r)
		}
	}
	return out, nil
}

// FileName returns the output file name for a dated or full export.
func FileName(date *time.Time, now time.Time) string {
	if date != nil {
		return "ebay-" + date.Format(time.DateOnly) + ".csv"
	}
	return "ebay-export-" + now.Format("20060102_150405") + ".csv"
}

// Run exports pending scans to a new file and marks them exported. Scans
// are only marked after the file is fully written.
func (e *Exporter) Run(ctx context.Context, opts Options) Result {
	recs, err := e.pending(ctx, opts.Date)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Message: fmt.Sprintf("loading scans: %v", err)}
	}

	groups, skipped, outcome := Aggregate(recs, e.cfg.PriceFloor, e.cfg.PriceFloorFilter)
	for _, g := range skipped {
		slog.Info("skipping listing below price floor",
			"identifier", g.Identifier, "condition", g.Condition, "price", g.ListPrice.StringFixed(2))
	}
	res := Result{Outcome: outcome, Skipped: skipped}
	switch outcome {
	case OutcomeNoRecords:
		res.Message = "no enriched scans waiting for export"
		return res
	case OutcomeAllDonations:
		res.Message = "all pending scans are donations"
		return res
	case OutcomeAllBelowFloor:
		res.Message = fmt.Sprintf("all %d listing(s) are below the price floor of %s", len(skipped), e.cfg.PriceFloor.StringFixed(2))
		return res
	}

	header := e.listing.Header()
	rows := make([][]string, 0, len(groups))
	var ids []int64
	for _, g := range groups {
		row := e.listing.Row(g.Record, g.Quantity)
		if len(row) != len(header) {
			res.Outcome = OutcomeFailed
			res.Message = fmt.Sprintf("row for %s has %d cells, header has %d", g.Identifier, len(row), len(header))
			return res
		}
		rows = append(rows, row)
		ids = append(ids, g.IDs...)
		res.Quantity += g.Quantity
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	name := filepath.Join(dir, FileName(opts.Date, e.now()))
	path, err := writeFile(name, header, rows)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Quantity = 0
		res.Message = err.Error()
		slog.Error("writing export", "path", name, "error", err)
		return res
	}
	res.Path = path
	res.Count = len(rows)

	marked, err := e.store.MarkExported(ctx, ids)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Message = fmt.Sprintf("wrote %s but marking scans failed: %v", path, err)
		slog.Error("marking scans exported", "path", path, "error", err)
		return res
	}
	res.Marked = marked
	res.Success = true
	res.Message = fmt.Sprintf("%d listing(s) exported", len(rows))
	slog.Info("export written", "path", path, "rows", len(rows), "marked", marked, "skipped", len(skipped))

	err = events.Emit(ctx, e.pub, events.TypeListingsExported, path, events.ListingsExportedPayload{
		Path: path, Rows: len(rows), Quantity: res.Quantity, ScanIDs: ids,
	})
	if err != nil {
		slog.Warn("publishing export event", "error", err)
	}
	return res
}

// maxNameAttempts bounds the "-N" suffixes tried for a taken file name.
const maxNameAttempts = 100

// writeFile writes header and rows through a temporary file in the target
// directory, so a failed write never leaves a partial export behind. An
// existing file is never replaced: when path is taken the next free
// "name-N.csv" is used. It returns the path actually written.
func writeFile(path string, header []string, rows [][]string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("setting export file mode: %w", err)
	}

	w := csv.NewWriter(tmp)
	w.Write(header)
	w.WriteAll(rows)
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing export file: %w", err)
	}

	// Link fails if the name exists, unlike Rename.
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; n <= maxNameAttempts; n++ {
		target := path
		if n > 1 {
			target = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		err := os.Link(tmp.Name(), target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publishing export file: %w", err)
		}
	}
	return "", fmt.Errorf("publishing export file: %s and %d alternatives already exist", path, maxNameAttempts-1)
}

// Preview returns up to limit groups an export would consider, including
// those under the price floor. A limit <= 0 returns all.
func (e *Exporter) Preview(ctx context.Context, date *time.Time, limit int) ([]Group, error) {
	recs, err := e.pending(ctx, date)
	if err != nil {
		return nil, err
	}
	groups := group(recs, e.cfg.PriceFloor)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// Ready reports whether an export would find anything, and how many
// pending scans are priced under the floor.
func (e *Exporter) Ready(ctx context.Context, date *time.Time) (Readiness, error) {
	recs, err := e.pending(ctx, date)
	if err != nil {
		return Readiness{}, err
	}
	if len(recs) == 0 {
		return Readiness{Message: "no enriched scans waiting for export"}, nil
	}

	var r Readiness
	for _, rec := range recs {
		if rec.Condition == model.ConditionDonation {
			continue
		}
		r.Count++
		if rec.Enrichment.ListPrice.LessThan(e.cfg.PriceFloor) {
			r.LowPrice++
		}
	}
	if r.Count == 0 {
		r.Message = "all pending scans are donations"
		return r, nil
	}
	r.Ready = true
	r.Message = fmt.Sprintf("%d scan(s) ready for export", r.Count)
	return r, nil
}
