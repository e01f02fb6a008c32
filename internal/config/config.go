// Package config holds the pipeline configuration and loads overrides from
// the environment.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bookbin/internal/model"
)

// Source configures one external metadata catalog.
type Source struct {
	BaseURL  string
	Timeout  time.Duration
	Interval time.Duration
}

// Config is passed explicitly to every pipeline component.
type Config struct {
	CatalogA    Source
	CatalogB    Source
	MaxAttempts int
	RetryDelay  time.Duration
	UserAgent   string

	DefaultPages           int
	DefaultLanguage        string
	DefaultBinding         string
	UnknownTitle           string
	UnknownAuthor          string
	DescriptionPlaceholder string
	MaxDescription         int

	PriceFloor     decimal.Decimal
	PriceFactors   map[model.Condition]decimal.Decimal
	ConditionCodes map[model.Condition]string
	// ConditionNotes is the buyer-facing condition text in listing descriptions.
	ConditionNotes map[model.Condition]string
	CategoryCode   string
	WeightPerPage  int

	ExportColumns    []string
	PriceFloorFilter bool
	Format           string
	Duration         string
	Location         string
	PostalCode       string
	TitleMax         int
	AuthorMax        int
	Languages        map[string]string
	FallbackLanguage string

	BinPattern string

	CoverCache        bool
	CoverMaxDimension int

	RedisAddr    string
	CacheTTL     time.Duration
	LockTTL      time.Duration
	KafkaBrokers []string
	KafkaTopic   string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CatalogA: Source{
			BaseURL:  "https://www.googleapis.com/books/v1/volumes",
			Timeout:  10 * time.Second,
			Interval: time.Second,
		},
		CatalogB: Source{
			BaseURL:  "https://openlibrary.org/api/books",
			Timeout:  10 * time.Second,
			Interval: time.Second,
		},
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
		UserAgent:   "bookbin/1.0",

		DefaultPages:           200,
		DefaultLanguage:        "eng",
		DefaultBinding:         "Paperback",
		UnknownTitle:           "Unknown title",
		UnknownAuthor:          "Unknown author",
		DescriptionPlaceholder: "Description not available.",
		MaxDescription:         1000,

		PriceFloor: decimal.RequireFromString("3.99"),
		PriceFactors: map[model.Condition]decimal.Decimal{
			model.ConditionNew:      decimal.RequireFromString("0.70"),
			model.ConditionGood:     decimal.RequireFromString("0.50"),
			model.ConditionUsed:     decimal.RequireFromString("0.35"),
			model.ConditionDonation: decimal.Zero,
		},
		ConditionCodes: map[model.Condition]string{
			model.ConditionNew:      "1000",
			model.ConditionGood:     "2750",
			model.ConditionUsed:     "5000",
			model.ConditionDonation: "",
		},
		ConditionNotes: map[model.Condition]string{
			model.ConditionNew:      "Brand New",
			model.ConditionGood:     "Very Good",
			model.ConditionUsed:     "Acceptable",
			model.ConditionDonation: "Donation",
		},
		CategoryCode:  "267",
		WeightPerPage: 8,

		ExportColumns:    DefaultColumns(),
		PriceFloorFilter: true,
		Format:           "FixedPrice",
		Duration:         "GTC",
		Location:         "VALCOURT,QC",
		PostalCode:       "J0E2L0",
		TitleMax:         80,
		AuthorMax:        50,
		Languages: map[string]string{
			"eng": "English",
			"en":  "English",
			"fra": "French",
			"fre": "French",
			"fr":  "French",
			"spa": "Spanish",
			"es":  "Spanish",
			"deu": "German",
			"ger": "German",
			"de":  "German",
		},
		FallbackLanguage: "English",

		BinPattern: `^[A-Z]\d{3,4}$`,

		CoverMaxDimension: 600,

		CacheTTL:   24 * time.Hour,
		LockTTL:    6 * time.Hour,
		KafkaTopic: "bookbin.events",
	}
}

// DefaultColumns returns the marketplace bulk-upload column schema.
func DefaultColumns() []string {
	return []string{
		"*Action(SiteID=Canada|Country=CA|Currency=CAD|Version=1193)",
		"Custom label (SKU)",
		"Category ID",
		"Category name",
		"Title",
		"Relationship",
		"Relationship details",
		"Schedule Time",
		"P:EPID",
		"Start price",
		"Quantity",
		"Item photo URL",
		"VideoID",
		"Condition ID",
		"Description",
		"Format",
		"Duration",
		"Buy It Now price",
		"Best Offer Enabled",
		"Best Offer Auto Accept Price",
		"Minimum Best Offer Price",
		"Immediate pay required",
		"Location",
		"Shipping service 1 option",
		"Shipping service 1 cost",
		"Shipping service 1 priority",
		"Shipping service 2 option",
		"Shipping service 2 cost",
		"Shipping service 2 priority",
		"Max dispatch time",
		"Returns accepted option",
		"Returns within option",
		"Refund option",
		"Return shipping cost paid by",
		"Shipping profile name",
		"Return profile name",
		"Payment profile name",
		"ProductCompliancePolicyID",
		"Regional ProductCompliancePolicies",
		"C:Author",
		"C:Book Title",
		"C:Language",
		"C:Format",
		"C:Publication Year",
		"WeightMajor",
		"WeightMinor",
		"WeightUnit",
		"PackageLength",
		"PackageDepth",
		"PackageWidth",
		"PostalCode",
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.CatalogA.BaseURL == "" || c.CatalogB.BaseURL == "" {
		errs = append(errs, errors.New("catalog base URLs are required"))
	}
	if c.CatalogA.Timeout <= 0 || c.CatalogB.Timeout <= 0 {
		errs = append(errs, errors.New("catalog timeouts must be positive"))
	}
	if c.CatalogA.Interval < 0 || c.CatalogB.Interval < 0 {
		errs = append(errs, errors.New("catalog rate intervals must not be negative"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay must not be negative"))
	}
	if c.DefaultPages <= 0 {
		errs = append(errs, fmt.Errorf("default page count must be positive, got %d", c.DefaultPages))
	}
	if c.WeightPerPage <= 0 {
		errs = append(errs, fmt.Errorf("weight per page must be positive, got %d", c.WeightPerPage))
	}
	if c.PriceFloor.IsNegative() {
		errs = append(errs, errors.New("price floor must not be negative"))
	}
	for cond, f := range c.PriceFactors {
		if !cond.Valid() {
			errs = append(errs, fmt.Errorf("price factor for unknown condition %q", cond))
		}
		if f.IsNegative() {
			errs = append(errs, fmt.Errorf("price factor for %s must not be negative", cond))
		}
	}
	if len(c.ExportColumns) == 0 {
		errs = append(errs, errors.New("export column schema is empty"))
	}
	seen := make(map[string]bool, len(c.ExportColumns))
	for _, col := range c.ExportColumns {
		if seen[col] {
			errs = append(errs, fmt.Errorf("duplicate export column %q", col))
		}
		seen[col] = true
	}
	if c.TitleMax < 4 || c.AuthorMax < 4 {
		errs = append(errs, errors.New("title and author limits must be at least 4"))
	}
	if _, err := regexp.Compile(c.BinPattern); err != nil {
		errs = append(errs, fmt.Errorf("bin pattern: %w", err))
	}

	return errors.Join(errs...)
}
