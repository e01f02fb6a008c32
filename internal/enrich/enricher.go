package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/bookbin/internal/catalog"
	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/imaging"
	"github.com/erazemk/bookbin/internal/isbn"
	"github.com/erazemk/bookbin/internal/model"
)

// Store is the part of the record store enrichment needs.
type Store interface {
	GetInventory(ctx context.Context, identifier string) (*model.InventoryRecord, error)
	GetScans(ctx context.Context, identifier string) ([]model.ScanRecord, error)
	ListUnenriched(ctx context.Context) ([]model.ScanRecord, error)
	SaveEnrichment(ctx context.Context, scanID int64, f model.EnrichedFields) error
	SaveCover(ctx context.Context, identifier string, image []byte, mime, sourceURL string) error
}

// Locker grants exclusive enrichment runs. TryAcquire returns a nil release
// func when another run holds the lock.
type Locker interface {
	TryAcquire(ctx context.Context) (func(), error)
}

// ItemResult reports the enrichment of one identifier.
type ItemResult struct {
	Identifier string   `json:"identifier"`
	Success    bool     `json:"success"`
	Rejected   bool     `json:"rejected,omitempty"`
	Busy       bool     `json:"busy,omitempty"`
	Count      int      `json:"count"`
	Sources    []string `json:"sources,omitempty"`
	Message    string   `json:"message"`
}

// Progress is reported after each identifier of a batch.
type Progress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

// BatchResult reports a whole enrichment run.
type BatchResult struct {
	Success   bool         `json:"success"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Cancelled bool         `json:"cancelled,omitempty"`
	Busy      bool         `json:"busy,omitempty"`
	Message   string       `json:"message"`
	Failures  []ItemResult `json:"failures,omitempty"`
}

// Options wires optional collaborators into an Enricher.
type Options struct {
	// Covers downloads cover thumbnails. Nil disables cover caching.
	Covers    *imaging.Thumbnailer
	Publisher events.Publisher
	// Locker defaults to an in-process flag.
	Locker Locker
}

// Enricher attaches catalog metadata and prices to scans.
type Enricher struct {
	store  Store
	a, b   catalog.Source
	merger *Merger
	covers *imaging.Thumbnailer
	pub    events.Publisher
	locker Locker
}

// New returns an Enricher querying a and b, in priority order.
func New(store Store, a, b catalog.Source, merger *Merger, opts Options) *Enricher {
	e := &Enricher{
		store:  store,
		a:      a,
		b:      b,
		merger: merger,
		covers: opts.Covers,
		pub:    opts.Publisher,
		locker: opts.Locker,
	}
	if e.pub == nil {
		e.pub = events.Nop{}
	}
	if e.locker == nil {
		e.locker = &localLock{}
	}
	return e
}

// EnrichIdentifier enriches every scan of identifier. Invalid identifiers
// are rejected before any catalog is queried. It shares the run lock with
// EnrichPending and reports Busy while a batch is active.
func (e *Enricher) EnrichIdentifier(ctx context.Context, identifier string) ItemResult {
	if !isbn.Validate(identifier) {
		return e.enrichIdentifier(ctx, identifier)
	}

	release, err := e.locker.TryAcquire(ctx)
	if err != nil {
		return ItemResult{Identifier: identifier, Message: err.Error()}
	}
	if release == nil {
		return ItemResult{Identifier: identifier, Busy: true, Message: "enrichment already in progress"}
	}
	defer release()
	return e.enrichIdentifier(ctx, identifier)
}

func (e *Enricher) enrichIdentifier(ctx context.Context, identifier string) ItemResult {
	res := ItemResult{Identifier: identifier}
	if !isbn.Validate(identifier) {
		res.Rejected = true
		res.Message = fmt.Sprintf("invalid identifier %q: expected 10 to 14 digits", identifier)
		return res
	}

	scans, err := e.store.GetScans(ctx, identifier)
	if err != nil {
		res.Message = err.Error()
		return res
	}
	if len(scans) == 0 {
		res.Message = "no scans for identifier"
		return res
	}
	inv, err := e.store.GetInventory(ctx, identifier)
	if err != nil {
		res.Message = err.Error()
		return res
	}
	if inv == nil {
		res.Message = "identifier not in manifest"
		return res
	}

	var a, b *catalog.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if r, ok := e.a.Fetch(gctx, identifier); ok {
			a = r
		}
		return nil
	})
	g.Go(func() error {
		if r, ok := e.b.Fetch(gctx, identifier); ok {
			b = r
		}
		return nil
	})
	g.Wait()

	var merged model.EnrichedFields
	ids := make([]int64, 0, len(scans))
	for _, scan := range scans {
		merged = e.merger.Merge(a, b, inv, scan)
		if err := e.store.SaveEnrichment(ctx, scan.ID, merged); err != nil {
			res.Message = fmt.Sprintf("saving scan %d: %v", scan.ID, err)
			return res
		}
		ids = append(ids, scan.ID)
	}

	if e.covers != nil && merged.ImageURL != "" {
		e.cacheCover(ctx, identifier, merged.ImageURL)
	}

	err = events.Emit(ctx, e.pub, events.TypeScanEnriched, identifier, events.ScanEnrichedPayload{
		Identifier: identifier,
		ScanIDs:    ids,
		Sources:    merged.Sources,
		Title:      merged.Title,
		ListPrice:  merged.ListPrice,
	})
	if err != nil {
		slog.Warn("publishing enrichment event", "identifier", identifier, "error", err)
	}

	res.Success = true
	res.Count = len(ids)
	res.Sources = merged.Sources
	res.Message = fmt.Sprintf("enriched %d scan(s) from %v", len(ids), merged.Sources)
	slog.Info("identifier enriched", "identifier", identifier, "scans", len(ids), "sources", merged.Sources)
	return res
}

func (e *Enricher) cacheCover(ctx context.Context, identifier, url string) {
	thumb, err := e.covers.Fetch(ctx, url)
	if err != nil {
		slog.Warn("fetching cover", "identifier", identifier, "url", url, "error", err)
		return
	}
	if err := e.store.SaveCover(ctx, identifier, thumb.Data, thumb.MIME, url); err != nil {
		slog.Warn("saving cover", "identifier", identifier, "error", err)
	}
}

// EnrichPending enriches every identifier with unenriched scans, one at a
// time. Cancellation is checked between identifiers; an identifier in
// progress always runs to completion. progress may be nil.
func (e *Enricher) EnrichPending(ctx context.Context, progress func(Progress)) BatchResult {
	release, err := e.locker.TryAcquire(ctx)
	if err != nil {
		return BatchResult{Message: err.Error()}
	}
	if release == nil {
		return BatchResult{Busy: true, Message: "enrichment already in progress"}
	}
	defer release()

	scans, err := e.store.ListUnenriched(ctx)
	if err != nil {
		return BatchResult{Message: err.Error()}
	}
	ids := distinctIdentifiers(scans)

	res := BatchResult{Total: len(ids)}
	if len(ids) == 0 {
		res.Success = true
		res.Message = "nothing to enrich"
		return res
	}

	slog.Info("enrichment run started", "identifiers", len(ids))
	for i, id := range ids {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		item := e.enrichIdentifier(context.WithoutCancel(ctx), id)
		if item.Success {
			res.Succeeded++
		} else {
			res.Failed++
			res.Failures = append(res.Failures, item)
			slog.Warn("enrichment failed", "identifier", id, "reason", item.Message)
		}
		if progress != nil {
			progress(Progress{Current: i + 1, Total: len(ids), Identifier: id, Message: item.Message})
		}
	}

	res.Success = !res.Cancelled
	res.Message = fmt.Sprintf("%d enriched, %d failed of %d", res.Succeeded, res.Failed, res.Total)
	if res.Cancelled {
		res.Message += " (cancelled)"
	}
	slog.Info("enrichment run finished", "succeeded", res.Succeeded, "failed", res.Failed, "cancelled", res.Cancelled)
	return res
}

func distinctIdentifiers(scans []model.ScanRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range scans {
		if !seen[s.Identifier] {
			seen[s.Identifier] = true
			ids = append(ids, s.Identifier)
		}
	}
	return ids
}

// localLock is the in-process "enrichment in progress" flag.
type localLock struct {
	mu   sync.Mutex
	held bool
}

func (l *localLock) TryAcquire(context.Context) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, nil
	}
	l.held = true
	return func() {
		l.mu.Lock()
		l.held = false
		l.mu.Unlock()
	}, nil
}
