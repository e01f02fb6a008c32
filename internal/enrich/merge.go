// Package enrich merges catalog metadata into scans and drives enrichment
// runs.
package enrich

import (
	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/catalog"
	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/listing"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/pricing"
)

// SourceInventory marks fields built without any catalog data.
const SourceInventory = "inventory"

// Merger combines catalog records with inventory data.
type Merger struct {
	cfg     config.Config
	est     *pricing.Estimator
	listing *listing.Builder
}

// NewMerger returns a Merger using cfg defaults.
func NewMerger(cfg config.Config, est *pricing.Estimator, lb *listing.Builder) *Merger {
	return &Merger{cfg: cfg, est: est, listing: lb}
}

// Merge resolves every enrichment field of scan. Either record may be nil.
// Catalog A wins over catalog B for every bibliographic field except the
// title, where the manifest wins.
func (m *Merger) Merge(a, b *catalog.Record, inv *model.InventoryRecord, scan model.ScanRecord) model.EnrichedFields {
	f := model.EnrichedFields{
		Identifier: scan.Identifier,
		Condition:  scan.Condition,
		Binding:    m.cfg.DefaultBinding,
	}

	ref := decimal.Zero
	title := scan.Title
	if inv != nil {
		ref = inv.ReferencePrice
		title = inv.Title
	}
	f.ReferencePrice = ref

	if a == nil && b == nil {
		f.Title = orDefault(title, m.cfg.UnknownTitle)
		f.Author = m.cfg.UnknownAuthor
		f.PageCount = m.cfg.DefaultPages
		f.Language = m.cfg.DefaultLanguage
		f.Description = m.cfg.DescriptionPlaceholder
		f.Sources = []string{SourceInventory}
	} else {
		f.Title = first(m.cfg.UnknownTitle, title, field(a, titleOf), field(b, titleOf))
		f.Author = first(m.cfg.UnknownAuthor, field(a, authorOf), field(b, authorOf))
		f.Publisher = first("", field(a, publisherOf), field(b, publisherOf))
		f.PublicationYear = first("", field(a, yearOf), field(b, yearOf))
		f.PageCount = m.cfg.DefaultPages
		if a != nil && a.PageCount > 0 {
			f.PageCount = a.PageCount
		} else if b != nil && b.PageCount > 0 {
			f.PageCount = b.PageCount
		}
		f.Language = first(m.cfg.DefaultLanguage, field(a, languageOf))
		f.Description = first(m.cfg.DescriptionPlaceholder, field(a, descriptionOf), field(b, descriptionOf))
		f.ImageURL = first("", field(a, imageOf), field(b, imageOf))
		for _, r := range []*catalog.Record{a, b} {
			if r != nil {
				f.Sources = append(f.Sources, r.Source)
			}
		}
	}

	f.ListPrice = m.est.Price(ref, scan.Condition)
	f.ConditionCode = m.cfg.ConditionCodes[scan.Condition]
	f.CategoryCode = m.cfg.CategoryCode
	f.DescriptionHTML = m.listing.RenderDescription(f)
	return f
}

func titleOf(r *catalog.Record) string       { return r.Title }
func authorOf(r *catalog.Record) string      { return r.Author }
func publisherOf(r *catalog.Record) string   { return r.Publisher }
func yearOf(r *catalog.Record) string        { return r.PublicationYear }
func languageOf(r *catalog.Record) string    { return r.Language }
func descriptionOf(r *catalog.Record) string { return r.Description }
func imageOf(r *catalog.Record) string       { return r.ImageURL }

func field(r *catalog.Record, get func(*catalog.Record) string) string {
	if r == nil {
		return ""
	}
	return get(r)
}

// first returns the first non-empty value, or def.
func first(def string, vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return def
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
