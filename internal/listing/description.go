package listing

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"log/slog"
	"strconv"
	"strings"

	"github.com/erazemk/bookbin/internal/model"
)

//go:embed templates/description.html
var templateFS embed.FS

var descriptionTmpl = template.Must(template.ParseFS(templateFS, "templates/description.html"))

type descriptionData struct {
	Title       string
	Author      string
	Publisher   string
	Year        string
	Identifier  string
	Binding     string
	Pages       string
	Language    string
	Condition   string
	Description string
	Location    string
}

// RenderDescription renders the HTML listing description for f.
// Absent fields render as placeholders or empty strings.
func (b *Builder) RenderDescription(f model.EnrichedFields) string {
	data := descriptionData{
		Title:       orDefault(f.Title, b.cfg.UnknownTitle),
		Author:      orDefault(f.Author, b.cfg.UnknownAuthor),
		Publisher:   f.Publisher,
		Year:        f.PublicationYear,
		Identifier:  f.Identifier,
		Binding:     orDefault(f.Binding, b.cfg.DefaultBinding),
		Language:    b.Language(f.Language),
		Condition:   b.cfg.ConditionNotes[f.Condition],
		Description: orDefault(f.Description, b.cfg.DescriptionPlaceholder),
		Location:    b.cfg.Location,
	}
	if f.PageCount > 0 {
		data.Pages = strconv.Itoa(f.PageCount)
	}

	var buf bytes.Buffer
	if err := descriptionTmpl.Execute(&buf, data); err != nil {
		slog.Error("rendering listing description", "identifier", f.Identifier, "error", err)
		return "<p>" + html.EscapeString(data.Title) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
