package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dimensions holds the physical package measurements of a book.
// Weight is split into major (kg) and minor (g) units.
type Dimensions struct {
	WeightMajor int     `json:"weight_major"`
	WeightMinor int     `json:"weight_minor"`
	Length      float64 `json:"length"`
	Depth       float64 `json:"depth"`
	Width       float64 `json:"width"`
}

// IsZero reports whether no measurement was recorded.
func (d Dimensions) IsZero() bool {
	return d == Dimensions{}
}

// EnrichedFields is the merged bibliographic and pricing data written back
// onto a scan.
type EnrichedFields struct {
	Identifier      string          `json:"identifier"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Publisher       string          `json:"publisher"`
	PublicationYear string          `json:"publication_year"`
	PageCount       int             `json:"page_count"`
	Binding         string          `json:"binding"`
	Language        string          `json:"language"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"image_url"`
	Condition       Condition       `json:"condition"`
	ReferencePrice  decimal.Decimal `json:"reference_price"`
	ListPrice       decimal.Decimal `json:"list_price"`
	CategoryCode    string          `json:"category_code"`
	ConditionCode   string          `json:"condition_code"`
	DescriptionHTML string          `json:"description_html"`
	Sources         []string        `json:"sources"`
}

// ScanRecord is one physical scan event of a book into a bin.
type ScanRecord struct {
	ID         int64      `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	Bin        string     `json:"bin"`
	Identifier string     `json:"identifier"`
	Condition  Condition  `json:"condition"`
	Quantity   int        `json:"quantity"`
	Dimensions Dimensions `json:"dimensions"`

	// Inventory snippet copied at scan time.
	Lot            string          `json:"lot,omitempty"`
	SKU            string          `json:"sku,omitempty"`
	Title          string          `json:"title"`
	ReferencePrice decimal.Decimal `json:"reference_price"`

	Enrichment   EnrichedFields `json:"enrichment"`
	Enriched     bool           `json:"enriched"`
	EnrichedAt   *time.Time     `json:"enriched_at,omitempty"`
	Exported     bool           `json:"exported"`
	ExportedAt   *time.Time     `json:"exported_at,omitempty"`
	QuantitySold int            `json:"quantity_sold"`
	Status       string         `json:"status"`
}
