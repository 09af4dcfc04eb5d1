// Package sitemap renders and validates sitemap protocol 0.9 documents.
//
// Render is a pure, total transform. Generate is the checked path used by
// the API: it validates the entries, renders them, and verifies the output
// before returning it.
package sitemap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/use-agent/sitemapper/models"
)

const (
	Declaration = `<?xml version="1.0" encoding="UTF-8"?>`
	Namespace   = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// MaxURLs is the protocol limit on <url> entries per document.
	MaxURLs = 50000

	dateLayout = "2006-01-02"
)

var urlsetOpen = `<urlset xmlns="` + Namespace + `">`

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Render serializes entries into a sitemap document. Optional elements are
// written only when the matching option is set and the entry carries a
// value. An empty list renders an empty <urlset>.
func Render(entries []models.SitemapEntry, opts models.SitemapOptions) string {
	var b strings.Builder
	b.WriteString(Declaration)
	b.WriteByte('\n')
	b.WriteString(urlsetOpen)
	b.WriteByte('\n')

	for _, e := range entries {
		b.WriteString("  <url>\n")
		writeElement(&b, "loc", escaper.Replace(e.URL))
		if opts.IncludeLastmod && e.Lastmod != "" {
			writeElement(&b, "lastmod", escaper.Replace(e.Lastmod))
		}
		if opts.IncludeChangefreq && e.Changefreq != "" {
			writeElement(&b, "changefreq", escaper.Replace(e.Changefreq))
		}
		if opts.IncludePriority && e.Priority != nil {
			writeElement(&b, "priority", formatPriority(*e.Priority))
		}
		b.WriteString("  </url>\n")
	}

	b.WriteString("</urlset>\n")
	return b.String()
}

func writeElement(b *strings.Builder, name, value string) {
	b.WriteString("    <")
	b.WriteString(name)
	b.WriteByte('>')
	b.WriteString(value)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}

// ValidationResult lists every problem found in a set of entries.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Generator validates and renders sitemaps under a configurable entry limit.
type Generator struct {
	maxURLs int
}

// NewGenerator returns a Generator allowing at most maxURLs entries.
// Values outside (0, MaxURLs] use MaxURLs.
func NewGenerator(maxURLs int) *Generator {
	if maxURLs <= 0 || maxURLs > MaxURLs {
		maxURLs = MaxURLs
	}
	return &Generator{maxURLs: maxURLs}
}

var defaultGenerator = NewGenerator(MaxURLs)

// Validate checks entries against the protocol limits with the default
// Generator.
func Validate(entries []models.SitemapEntry) ValidationResult {
	return defaultGenerator.Validate(entries)
}

// Generate validates, renders and checks entries with the default Generator.
func Generate(entries []models.SitemapEntry, opts models.SitemapOptions) (string, error) {
	return defaultGenerator.Generate(entries, opts)
}

// Validate reports every invalid entry rather than stopping at the first.
// Entry numbers in messages are 1-based.
func (g *Generator) Validate(entries []models.SitemapEntry) ValidationResult {
	if len(entries) == 0 {
		return ValidationResult{Valid: false, Errors: []string{"Pages array cannot be empty"}}
	}

	errs := []string{}
	if len(entries) > g.maxURLs {
		errs = append(errs, fmt.Sprintf("Sitemap cannot contain more than %s URLs", groupThousands(g.maxURLs)))
	}

	for i, e := range entries {
		n := i + 1
		if e.URL == "" {
			errs = append(errs, fmt.Sprintf("Page %d: URL is required", n))
		} else if u, err := url.Parse(e.URL); err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Sprintf("Page %d: Invalid URL format", n))
		}
		if e.Priority != nil && (*e.Priority < 0 || *e.Priority > 1) {
			errs = append(errs, fmt.Sprintf("Page %d: Priority must be between 0.0 and 1.0", n))
		}
		if e.Changefreq != "" && !slices.Contains(models.ChangeFreqs, e.Changefreq) {
			errs = append(errs, fmt.Sprintf("Page %d: Invalid changefreq value", n))
		}
		if e.Lastmod != "" {
			if _, err := dateparse.ParseAny(e.Lastmod); err != nil {
				errs = append(errs, fmt.Sprintf("Page %d: Invalid lastmod date format", n))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Generate rejects invalid entries with *models.ValidationError, renders
// the rest, and returns *models.SerializationError if the document fails
// Check.
func (g *Generator) Generate(entries []models.SitemapEntry, opts models.SitemapOptions) (string, error) {
	if res := g.Validate(entries); !res.Valid {
		return "", &models.ValidationError{Errors: res.Errors}
	}
	doc := Render(entries, opts)
	if err := Check(doc); err != nil {
		return "", err
	}
	return doc, nil
}

// Check verifies that doc is a well-formed sitemap document: it starts
// with the UTF-8 declaration, declares the protocol namespace, closes the
// <urlset>, and has as many <url> openings as closings.
func Check(doc string) error {
	switch {
	case !strings.HasPrefix(doc, Declaration):
		return &models.SerializationError{Reason: "missing XML declaration"}
	case !strings.Contains(doc, urlsetOpen):
		return &models.SerializationError{Reason: "missing urlset namespace"}
	case !strings.Contains(doc, "</urlset>"):
		return &models.SerializationError{Reason: "missing closing urlset"}
	}

	opens, closes := strings.Count(doc, "<url>"), strings.Count(doc, "</url>")
	if opens != closes {
		return &models.SerializationError{Reason: fmt.Sprintf("%d <url> elements but %d closed", opens, closes)}
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &models.SerializationError{Reason: err.Error()}
		}
	}
}

// FromPages derives one entry per crawled page. Last-modified hints are
// reduced to a date, and dropped when they cannot be parsed. changefreq is
// applied to every entry; empty omits it.
func FromPages(pages []models.PageRecord, changefreq string) []models.SitemapEntry {
	entries := make([]models.SitemapEntry, 0, len(pages))
	for _, p := range pages {
		priority := p.Priority
		entry := models.SitemapEntry{
			URL:        p.URL,
			Changefreq: changefreq,
			Priority:   &priority,
		}
		if p.LastModified != "" {
			if t, err := dateparse.ParseAny(p.LastModified); err == nil {
				entry.Lastmod = t.UTC().Format(dateLayout)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// formatPriority renders p with one decimal, rounding ties away from zero
// (0.25 is "0.3").
func formatPriority(p float64) string {
	return strconv.FormatFloat(math.Round(p*10)/10, 'f', 1, 64)
}

// Sample returns a fixed set of typical site entries under baseURL, dated
// now. Callers use it when a live crawl is unavailable.
func Sample(baseURL string, now time.Time) []models.SitemapEntry {
	today := now.UTC().Format(dateLayout)
	root := strings.TrimRight(baseURL, "/")

	entry := func(u, freq string, priority float64) models.SitemapEntry {
		return models.SitemapEntry{URL: u, Lastmod: today, Changefreq: freq, Priority: &priority}
	}
	return []models.SitemapEntry{
		entry(baseURL, "daily", 1.0),
		entry(root+"/about", "monthly", 0.8),
		entry(root+"/contact", "monthly", 0.7),
		entry(root+"/blog", "weekly", 0.9),
		entry(root+"/services", "monthly", 0.8),
	}
}

// groupThousands formats n with comma separators, e.g. 50000 -> "50,000".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
