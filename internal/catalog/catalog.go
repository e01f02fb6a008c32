// Package catalog queries external bibliographic catalogs for book metadata.
//
// Clients never return errors: transient failures are retried and then
// reported as "not found", so the enrichment pipeline can always fall back
// to inventory data.
package catalog

import "context"

// Record is the subset of bibliographic fields one catalog returned.
// Zero values mean the catalog did not provide the field.
type Record struct {
	Source          string `json:"source"`
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear string `json:"publication_year,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	Description     string `json:"description,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	Language        string `json:"language,omitempty"`
}

// Source is one metadata catalog.
type Source interface {
	Name() string
	Fetch(ctx context.Context, identifier string) (*Record, bool)
}

func yearPrefix(s string) string {
	if len(s) > 4 {
		return s[:4]
	}
	return s
}

func yearSuffix(s string) string {
	if len(s) > 4 {
		return s[len(s)-4:]
	}
	return s
}
