package enrich

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/catalog"
	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/db"
	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/imaging"
	"github.com/erazemk/bookbin/internal/listing"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/pricing"
	"github.com/erazemk/bookbin/internal/store"
)

type fakeSource struct {
	name string
	rec  *catalog.Record

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, _ string) (*catalog.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.rec == nil {
		return nil, false
	}
	r := *f.rec
	return &r, true
}

type capturePublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (p *capturePublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func newMerger() *Merger {
	cfg := config.Default()
	est := pricing.New(cfg)
	return NewMerger(cfg, est, listing.New(cfg, est))
}

func TestMergeAuthorPriority(t *testing.T) {
	m := newMerger()
	inv := &model.InventoryRecord{Identifier: "9780000000002", Title: "T"}
	scan := model.ScanRecord{Identifier: "9780000000002", Condition: model.ConditionGood}
	a := &catalog.Record{Source: "googlebooks", Author: "X"}
	b := &catalog.Record{Source: "openlibrary", Author: "Y"}

	tests := []struct {
		name string
		a, b *catalog.Record
		want string
	}{
		{"both present", a, b, "X"},
		{"only B", nil, b, "Y"},
		{"both absent", nil, nil, "Unknown author"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Merge(tt.a, tt.b, inv, scan)
			if got.Author != tt.want {
				t.Errorf("author = %q, want %q", got.Author, tt.want)
			}
		})
	}
}

func TestMergeFieldPriority(t *testing.T) {
	m := newMerger()
	inv := &model.InventoryRecord{Identifier: "9780306406157", Title: "Manifest Title", ReferencePrice: decimal.RequireFromString("100")}
	scan := model.ScanRecord{ID: 7, Identifier: "9780306406157", Condition: model.ConditionUsed}
	a := &catalog.Record{Source: "googlebooks", Title: "A Title", PublicationYear: "1999", Language: "fr"}
	b := &catalog.Record{
		Source: "openlibrary", Title: "B Title", Publisher: "B Press", PublicationYear: "2001",
		PageCount: 321, Description: "From B", ImageURL: "http://b/cover.jpg", Language: "de",
	}

	got := m.Merge(a, b, inv, scan)

	if got.Title != "Manifest Title" {
		t.Errorf("title = %q, manifest should win", got.Title)
	}
	if got.Publisher != "B Press" {
		t.Errorf("publisher = %q, want B's", got.Publisher)
	}
	if got.PublicationYear != "1999" {
		t.Errorf("year = %q, want A's", got.PublicationYear)
	}
	if got.PageCount != 321 {
		t.Errorf("pages = %d, want B's", got.PageCount)
	}
	if got.Language != "fr" {
		t.Errorf("language = %q, want A's", got.Language)
	}
	if got.Description != "From B" || got.ImageURL != "http://b/cover.jpg" {
		t.Errorf("unexpected description/image %q %q", got.Description, got.ImageURL)
	}
	if got.Binding != "Paperback" {
		t.Errorf("binding = %q, want the default", got.Binding)
	}
	if !got.ListPrice.Equal(decimal.RequireFromString("35")) {
		t.Errorf("list price = %s, want 35.00", got.ListPrice)
	}
	if got.ConditionCode != "5000" || got.Condition != model.ConditionUsed {
		t.Errorf("unexpected condition fields %q %q", got.Condition, got.ConditionCode)
	}
	if len(got.Sources) != 2 || got.Sources[0] != "googlebooks" {
		t.Errorf("sources = %v", got.Sources)
	}
	if got.DescriptionHTML == "" {
		t.Error("expected rendered description")
	}
}

func TestMergeLanguageIgnoresB(t *testing.T) {
	m := newMerger()
	b := &catalog.Record{Source: "openlibrary", Language: "fre"}

	got := m.Merge(nil, b, nil, model.ScanRecord{Identifier: "9780000000002", Condition: model.ConditionNew, Title: "Snippet"})
	if got.Language != "eng" {
		t.Errorf("language = %q, want default", got.Language)
	}
	if got.Title != "Snippet" {
		t.Errorf("title = %q, want scan snippet without inventory", got.Title)
	}
	if got.PageCount != 200 {
		t.Errorf("pages = %d, want default", got.PageCount)
	}
}

func newTestEnricher(t *testing.T, a, b catalog.Source, opts Options) (*Enricher, *store.SQLite) {
	t.Helper()
	s := store.New(db.NewTestDB(t))
	return New(s, a, b, newMerger(), opts), s
}

func seed(t *testing.T, s *store.SQLite, identifier string, cond model.Condition, withInventory bool) *model.ScanRecord {
	t.Helper()
	ctx := context.Background()
	if withInventory {
		if _, err := s.UpsertInventory(ctx, []model.InventoryRecord{
			{Identifier: identifier, Title: "T", ReferencePrice: decimal.RequireFromString("20.00")},
		}); err != nil {
			t.Fatalf("UpsertInventory: %v", err)
		}
	}
	scan, err := s.InsertScan(ctx, model.ScanRecord{Bin: "A101", Identifier: identifier, Condition: cond, Quantity: 1, Title: "T"})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
	return scan
}

func TestEnrichInventoryOnly(t *testing.T) {
	a := &fakeSource{name: "googlebooks"}
	b := &fakeSource{name: "openlibrary"}
	pub := &capturePublisher{}
	e, s := newTestEnricher(t, a, b, Options{Publisher: pub})
	scan := seed(t, s, "9780000000002", model.ConditionGood, true)

	res := e.EnrichIdentifier(context.Background(), "9780000000002")
	if !res.Success || res.Count != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	got, _ := s.GetScan(context.Background(), scan.ID)
	if !got.Enriched {
		t.Fatal("scan should be enriched")
	}
	f := got.Enrichment
	if !f.ListPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("list price = %s, want 10.00", f.ListPrice)
	}
	if f.Author != "Unknown author" {
		t.Errorf("author = %q", f.Author)
	}
	if f.Description != "Description not available." {
		t.Errorf("description = %q", f.Description)
	}
	if len(f.Sources) != 1 || f.Sources[0] != SourceInventory {
		t.Errorf("sources = %v", f.Sources)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("expected one call per source, got %d and %d", a.calls, b.calls)
	}
	if len(pub.envs) != 1 || pub.envs[0].EventType != events.TypeScanEnriched {
		t.Errorf("expected one ScanEnriched event, got %+v", pub.envs)
	}
}

func TestEnrichRejectsInvalidIdentifier(t *testing.T) {
	a := &fakeSource{name: "googlebooks"}
	b := &fakeSource{name: "openlibrary"}
	e, _ := newTestEnricher(t, a, b, Options{})

	for _, id := range []string{"12345", "ABC1234567890"} {
		res := e.EnrichIdentifier(context.Background(), id)
		if res.Success || !res.Rejected || res.Message == "" {
			t.Errorf("EnrichIdentifier(%q) = %+v, want rejection", id, res)
		}
	}
	if a.calls+b.calls != 0 {
		t.Error("catalogs must not be queried for invalid identifiers")
	}
}

func TestEnrichFailsWithoutManifestEntry(t *testing.T) {
	e, s := newTestEnricher(t, &fakeSource{}, &fakeSource{}, Options{})
	seed(t, s, "9780306406157", model.ConditionUsed, false)

	res := e.EnrichIdentifier(context.Background(), "9780306406157")
	if res.Success || res.Rejected {
		t.Errorf("expected failure, got %+v", res)
	}

	res = e.EnrichIdentifier(context.Background(), "9789999999999")
	if res.Success {
		t.Errorf("expected failure without scans, got %+v", res)
	}
}

func TestEnrichCachesCover(t *testing.T) {
	var buf bytes.Buffer
	jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 30)), nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	a := &fakeSource{name: "googlebooks", rec: &catalog.Record{Source: "googlebooks", Author: "X", ImageURL: srv.URL + "/c.jpg"}}
	e, s := newTestEnricher(t, a, &fakeSource{name: "openlibrary"}, Options{
		Covers: imaging.NewThumbnailer(srv.Client(), 100, ""),
	})
	seed(t, s, "9780000000002", model.ConditionNew, true)

	res := e.EnrichIdentifier(context.Background(), "9780000000002")
	if !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	data, mime, err := s.GetCover(context.Background(), "9780000000002")
	if err != nil || len(data) == 0 || mime != "image/jpeg" {
		t.Errorf("expected cached cover, got %d bytes %q %v", len(data), mime, err)
	}
}

func TestEnrichPendingCancelsBetweenIdentifiers(t *testing.T) {
	e, s := newTestEnricher(t, &fakeSource{}, &fakeSource{}, Options{})
	seed(t, s, "9780000000002", model.ConditionGood, true)
	seed(t, s, "9780306406157", model.ConditionUsed, true)
	seed(t, s, "9780306406157", model.ConditionGood, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var seen []Progress
	res := e.EnrichPending(ctx, func(p Progress) {
		seen = append(seen, p)
		cancel()
	})

	if !res.Cancelled || res.Success {
		t.Errorf("expected cancelled run, got %+v", res)
	}
	if res.Total != 2 || res.Succeeded != 1 {
		t.Errorf("unexpected counts %+v", res)
	}
	if len(seen) != 1 || seen[0].Current != 1 || seen[0].Identifier != "9780000000002" {
		t.Errorf("unexpected progress %+v", seen)
	}

	pending, _ := s.ListUnenriched(context.Background())
	if len(pending) != 2 {
		t.Errorf("expected 2 scans left, got %d", len(pending))
	}
}

func TestEnrichPendingRejectsConcurrentRun(t *testing.T) {
	lock := &localLock{}
	release, _ := lock.TryAcquire(context.Background())
	defer release()

	e, _ := newTestEnricher(t, &fakeSource{}, &fakeSource{}, Options{Locker: lock})
	res := e.EnrichPending(context.Background(), nil)
	if !res.Busy || res.Success {
		t.Errorf("expected busy result, got %+v", res)
	}
}

func TestEnrichIdentifierWaitsForBatch(t *testing.T) {
	a := &fakeSource{name: "googlebooks"}
	e, s := newTestEnricher(t, a, &fakeSource{name: "openlibrary"}, Options{})
	seed(t, s, "9780000000002", model.ConditionGood, true)
	seed(t, s, "9780306406157", model.ConditionUsed, true)

	var during ItemResult
	res := e.EnrichPending(context.Background(), func(p Progress) {
		if p.Current == 1 {
			during = e.EnrichIdentifier(context.Background(), "9780306406157")
		}
	})
	if !during.Busy || during.Success {
		t.Errorf("single enrichment during a batch = %+v, want busy", during)
	}
	if res.Succeeded != 2 || a.calls != 2 {
		t.Errorf("batch result %+v with %d catalog calls, want 2 and 2", res, a.calls)
	}

	after := e.EnrichIdentifier(context.Background(), "9780306406157")
	if after.Busy || !after.Success {
		t.Errorf("single enrichment after the batch = %+v", after)
	}
}

func TestRunner(t *testing.T) {
	e, s := newTestEnricher(t, &fakeSource{}, &fakeSource{}, Options{})
	seed(t, s, "9780000000002", model.ConditionGood, true)

	r := NewRunner(context.Background(), e)
	job, err := r.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.ID == "" || job.State != JobRunning {
		t.Errorf("unexpected job %+v", job)
	}

	done, err := r.Wait(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if done.State != JobDone || done.Result == nil || done.Result.Succeeded != 1 {
		t.Errorf("unexpected finished job %+v", done)
	}
	if done.Progress.Current != 1 || done.Progress.Total != 1 {
		t.Errorf("unexpected progress %+v", done.Progress)
	}

	if _, ok := r.Get("nope"); ok {
		t.Error("unknown job should not be found")
	}
	if r.Cancel("nope") {
		t.Error("cancelling an unknown job should report false")
	}

	next, err := r.Start()
	if err != nil {
		t.Fatalf("a new job should start after the first finished: %v", err)
	}
	if next, _ = r.Wait(context.Background(), next.ID); next.Result == nil || next.Result.Total != 0 {
		t.Errorf("second run should find nothing to enrich, got %+v", next.Result)
	}
}

func TestRunnerForgetsOldJobs(t *testing.T) {
	e, _ := newTestEnricher(t, &fakeSource{}, &fakeSource{}, Options{})
	r := NewRunner(context.Background(), e)
	r.keep = 2

	var ids []string
	for range 3 {
		job, err := r.Start()
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := r.Wait(context.Background(), job.ID); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		ids = append(ids, job.ID)
	}

	if _, ok := r.Get(ids[0]); ok {
		t.Error("oldest finished job should be forgotten")
	}
	for _, id := range ids[1:] {
		if job, ok := r.Get(id); !ok || job.State != JobDone {
			t.Errorf("job %s = %+v, %v, want kept and done", id, job, ok)
		}
	}
}
