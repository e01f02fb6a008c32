// Package listing renders enriched scans into marketplace bulk-upload rows.
package listing

import (
	"strconv"
	"strings"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/model"
	"github.com/erazemk/bookbin/internal/pricing"
	"github.com/erazemk/bookbin/internal/textutil"
)

// ActionAdd is the bulk-upload action for new listings.
const ActionAdd = "Add"

// Builder maps enriched scans onto a fixed column schema.
type Builder struct {
	cfg     config.Config
	columns []string
	est     *pricing.Estimator
}

// New returns a Builder for cfg.ExportColumns.
func New(cfg config.Config, est *pricing.Estimator) *Builder {
	cols := make([]string, len(cfg.ExportColumns))
	copy(cols, cfg.ExportColumns)
	return &Builder{cfg: cfg, columns: cols, est: est}
}

// Header returns the column names in output order.
func (b *Builder) Header() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// row is the input of a single export line.
type row struct {
	f    model.EnrichedFields
	dims model.Dimensions
	qty  int
}

type cellFunc func(b *Builder, r *row) string

// cells resolves a column name to its value. Columns missing from this
// table are written empty.
var cells = map[string]cellFunc{
	"Custom label (SKU)": func(b *Builder, r *row) string { return r.f.Identifier },
	"Category ID":        func(b *Builder, r *row) string { return r.f.CategoryCode },
	"Title":              func(b *Builder, r *row) string { return b.title(r) },
	"Start price":        func(b *Builder, r *row) string { return r.f.ListPrice.StringFixed(2) },
	"Quantity":           func(b *Builder, r *row) string { return strconv.Itoa(r.qty) },
	"Item photo URL":     func(b *Builder, r *row) string { return r.f.ImageURL },
	"Condition ID":       func(b *Builder, r *row) string { return r.f.ConditionCode },
	"Description": func(b *Builder, r *row) string {
		if r.f.DescriptionHTML != "" {
			return r.f.DescriptionHTML
		}
		return b.RenderDescription(r.f)
	},
	"Format":   func(b *Builder, r *row) string { return b.cfg.Format },
	"Duration": func(b *Builder, r *row) string { return b.cfg.Duration },
	"Location": func(b *Builder, r *row) string { return b.cfg.Location },
	"C:Author": func(b *Builder, r *row) string {
		return textutil.Truncate(orDefault(r.f.Author, b.cfg.UnknownAuthor), b.cfg.AuthorMax)
	},
	"C:Book Title":       func(b *Builder, r *row) string { return b.title(r) },
	"C:Language":         func(b *Builder, r *row) string { return b.Language(r.f.Language) },
	"C:Format":           func(b *Builder, r *row) string { return orDefault(r.f.Binding, b.cfg.DefaultBinding) },
	"C:Publication Year": func(b *Builder, r *row) string { return r.f.PublicationYear },
	"WeightMajor": func(b *Builder, r *row) string {
		major, _ := b.weight(r)
		return strconv.Itoa(major)
	},
	"WeightMinor": func(b *Builder, r *row) string {
		_, minor := b.weight(r)
		return strconv.Itoa(minor)
	},
	"PackageLength": func(b *Builder, r *row) string { return formatMeasure(r.dims.Length) },
	"PackageDepth":  func(b *Builder, r *row) string { return formatMeasure(r.dims.Depth) },
	"PackageWidth":  func(b *Builder, r *row) string { return formatMeasure(r.dims.Width) },
	"PostalCode":    func(b *Builder, r *row) string { return b.cfg.PostalCode },
}

// Row renders rec as one export line with qty as the listed quantity.
// The result always has exactly one cell per schema column.
func (b *Builder) Row(rec model.ScanRecord, qty int) []string {
	r := &row{f: rec.Enrichment, dims: rec.Dimensions, qty: qty}
	if r.f.Identifier == "" {
		r.f.Identifier = rec.Identifier
	}
	if r.f.Title == "" {
		r.f.Title = rec.Title
	}

	out := make([]string, len(b.columns))
	for i, col := range b.columns {
		out[i] = b.cell(col, r)
	}
	return out
}

func (b *Builder) cell(col string, r *row) string {
	// The action header carries site parameters, e.g. "*Action(SiteID=Canada|...)".
	if strings.HasPrefix(col, "*Action") {
		return ActionAdd
	}
	if fn, ok := cells[col]; ok {
		return fn(b, r)
	}
	return ""
}

// Language maps a language code to its marketplace display name.
func (b *Builder) Language(code string) string {
	if name, ok := b.cfg.Languages[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return b.cfg.FallbackLanguage
}

func (b *Builder) title(r *row) string {
	return textutil.Truncate(orDefault(r.f.Title, b.cfg.UnknownTitle), b.cfg.TitleMax)
}

// weight uses the recorded package weight, or estimates one from pages.
func (b *Builder) weight(r *row) (major, minor int) {
	if r.dims.WeightMajor != 0 || r.dims.WeightMinor != 0 {
		return r.dims.WeightMajor, r.dims.WeightMinor
	}
	return pricing.GramsToMajorMinor(b.est.EstimateWeight(r.f.PageCount))
}

func formatMeasure(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
