package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/isbn"
	"github.com/erazemk/bookbin/internal/textutil"
)

// OpenLibrary queries the Open Library books API. It asks for the
// identifier and its ISBN-10 form in one request.
type OpenLibrary struct {
	f       *fetcher
	baseURL string
	maxDesc int
}

// NewOpenLibrary returns a client for cfg.CatalogB.
func NewOpenLibrary(cfg config.Config, client *http.Client) *OpenLibrary {
	return &OpenLibrary{
		f:       newFetcher("openlibrary", cfg.CatalogB, cfg, client),
		baseURL: strings.TrimRight(cfg.CatalogB.BaseURL, "/"),
		maxDesc: cfg.MaxDescription,
	}
}

func (o *OpenLibrary) Name() string { return "openlibrary" }

// Fetch returns the first bib-key, in request order, that has data.
func (o *OpenLibrary) Fetch(ctx context.Context, identifier string) (*Record, bool) {
	ids := isbn.Alternates(identifier)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "ISBN:" + id
	}
	u := fmt.Sprintf("%s?bibkeys=%s&format=json&jscmd=data", o.baseURL, strings.Join(keys, ","))

	return o.f.fetch(ctx, identifier, u, func(body []byte) (*Record, error) {
		return o.parse(body, keys)
	})
}

type olNamed struct {
	Name string `json:"name"`
}

type olBook struct {
	Title         string          `json:"title"`
	Authors       []olNamed       `json:"authors"`
	Publishers    []olNamed       `json:"publishers"`
	PublishDate   string          `json:"publish_date"`
	NumberOfPages int             `json:"number_of_pages"`
	Notes         json.RawMessage `json:"notes"`
	Cover         *struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
}

func (o *OpenLibrary) parse(body []byte, keys []string) (*Record, error) {
	var resp map[string]*olBook
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding books: %w", err)
	}

	for _, k := range keys {
		b := resp[k]
		if b == nil {
			continue
		}

		names := make([]string, len(b.Authors))
		for i, a := range b.Authors {
			names[i] = a.Name
		}
		rec := &Record{
			Title:           strings.TrimSpace(b.Title),
			Author:          joinNonEmpty(names),
			PublicationYear: yearSuffix(strings.TrimSpace(b.PublishDate)),
			PageCount:       max(b.NumberOfPages, 0),
			Description:     textutil.Truncate(textutil.Clean(notesText(b.Notes)), o.maxDesc),
		}
		if len(b.Publishers) > 0 {
			rec.Publisher = strings.TrimSpace(b.Publishers[0].Name)
		}
		if b.Cover != nil {
			rec.ImageURL = firstNonEmpty(b.Cover.Medium, b.Cover.Small, b.Cover.Large)
		}
		return rec, nil
	}
	return nil, errNotFound
}

// notesText accepts either a plain string or a {"value": "..."} object.
func notesText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Value string `json:"value"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Value
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
