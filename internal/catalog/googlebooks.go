package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/textutil"
)

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	f       *fetcher
	baseURL string
	maxDesc int
}

// NewGoogleBooks returns a client for cfg.CatalogA. A nil client uses a
// default http.Client.
func NewGoogleBooks(cfg config.Config, client *http.Client) *GoogleBooks {
	return &GoogleBooks{
		f:       newFetcher("googlebooks", cfg.CatalogA, cfg, client),
		baseURL: strings.TrimRight(cfg.CatalogA.BaseURL, "/"),
		maxDesc: cfg.MaxDescription,
	}
}

func (g *GoogleBooks) Name() string { return "googlebooks" }

// Fetch looks up identifier as an ISBN and returns the first volume.
func (g *GoogleBooks) Fetch(ctx context.Context, identifier string) (*Record, bool) {
	u := g.baseURL + "?q=" + url.QueryEscape("isbn:"+identifier)
	return g.f.fetch(ctx, identifier, u, g.parse)
}

type gbResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo gbVolume `json:"volumeInfo"`
	} `json:"items"`
}

type gbVolume struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	Description   string   `json:"description"`
	ImageLinks    *struct {
		Thumbnail      string `json:"thumbnail"`
		SmallThumbnail string `json:"smallThumbnail"`
	} `json:"imageLinks"`
	Language string `json:"language"`
}

func (g *GoogleBooks) parse(body []byte) (*Record, error) {
	var resp gbResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding volumes: %w", err)
	}
	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return nil, errNotFound
	}

	v := resp.Items[0].VolumeInfo
	rec := &Record{
		Title:           strings.TrimSpace(v.Title),
		Author:          joinNonEmpty(v.Authors),
		Publisher:       strings.TrimSpace(v.Publisher),
		PublicationYear: yearPrefix(strings.TrimSpace(v.PublishedDate)),
		PageCount:       max(v.PageCount, 0),
		Description:     textutil.Truncate(textutil.Clean(v.Description), g.maxDesc),
		Language:        strings.TrimSpace(v.Language),
	}
	if v.ImageLinks != nil {
		rec.ImageURL = v.ImageLinks.Thumbnail
		if rec.ImageURL == "" {
			rec.ImageURL = v.ImageLinks.SmallThumbnail
		}
	}
	return rec, nil
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
