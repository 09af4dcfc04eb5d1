// Package extract pulls crawl-relevant data out of fetched HTML: the
// same-domain links a crawler should follow next, and the title and
// last-modified hints recorded for each page.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/sitemapper/normalize"
	"golang.org/x/net/html"
)

var (
	anchorSel       = cascadia.MustCompile("a[href]")
	titleSel        = cascadia.MustCompile("title")
	headingSel      = cascadia.MustCompile("h1")
	lastModifiedSel = cascadia.MustCompile(`meta[name="last-modified"]`)
	modifiedTimeSel = cascadia.MustCompile(`meta[property="article:modified_time"]`)
)

// Non-navigable href schemes.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

var (
	reExcludedExt = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|odt|ods|csv|zip|rar|7z|gz|tgz|tar|bz2|exe|dmg|msi|apk|iso|bin|jpe?g|png|gif|bmp|svg|webp|ico|tiff?|avif|mp3|mp4|m4a|avi|mov|wmv|flv|mkv|webm|wav|ogg|css|js|json|xml|rss|atom|woff2?|ttf|eot|otf)$`)
	reExcludedDir = regexp.MustCompile(`(?i)(^|/)(admin|login|api)(/|$)`)
)

// Metadata is the per-page information recorded alongside a crawled URL.
// Empty strings mean absent.
type Metadata struct {
	Title        string
	LastModified string
}

// Document is a parsed HTML page. Parse once, then read links and metadata
// from the same tree.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML. The HTML5 parser recovers from
// malformed markup, so errors are rare and only come from the reader.
func Parse(rawHTML string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Links returns the normalized same-domain URLs linked from the document,
// deduplicated in first-seen order. pageURL is the URL the document was
// fetched from and is used to resolve relative hrefs. Only links whose
// hostname equals baseHost exactly are kept; subdomains are not folded.
func (d *Document) Links(pageURL, baseHost string) []string {
	links := []string{}

	base, err := url.Parse(pageURL)
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	d.doc.FindMatcher(anchorSel).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := resolveLink(base, href, baseHost)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}

// Metadata returns the page title (first of <title> text or the first <h1>
// text) and the last-modified hint (a last-modified meta tag, else an
// article:modified_time meta property).
func (d *Document) Metadata() Metadata {
	title := strings.TrimSpace(d.doc.FindMatcher(titleSel).Text())
	if title == "" {
		title = strings.TrimSpace(d.doc.FindMatcher(headingSel).First().Text())
	}

	lastModified := strings.TrimSpace(d.doc.FindMatcher(lastModifiedSel).AttrOr("content", ""))
	if lastModified == "" {
		lastModified = strings.TrimSpace(d.doc.FindMatcher(modifiedTimeSel).AttrOr("content", ""))
	}

	return Metadata{Title: title, LastModified: lastModified}
}

// Links parses rawHTML and returns its same-domain links. See Document.Links.
func Links(rawHTML, pageURL, baseHost string) []string {
	d, err := Parse(rawHTML)
	if err != nil {
		return []string{}
	}
	return d.Links(pageURL, baseHost)
}

// ExtractMetadata parses rawHTML and returns its metadata. See Document.Metadata.
func ExtractMetadata(rawHTML string) Metadata {
	d, err := Parse(rawHTML)
	if err != nil {
		return Metadata{}
	}
	return d.Metadata()
}

// IsExcluded reports whether a URL path points at non-page content: binary
// or document downloads, and admin, login or api sections.
func IsExcluded(p string) bool {
	return reExcludedExt.MatchString(p) || reExcludedDir.MatchString(p)
}

// resolveLink turns one href into a normalized same-domain URL, reporting
// false when the link must not be followed.
func resolveLink(base *url.URL, href, baseHost string) (string, bool) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if i := strings.IndexByte(href, '?'); i >= 0 {
		href = href[:i]
	}
	if href == "" || href == "/" || href == "." {
		return "", false
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return "", false
	}

	link, err := normalize.URL(resolved.String())
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(resolved.Hostname(), baseHost) {
		return "", false
	}

	u, err := url.Parse(link)
	if err != nil || IsExcluded(u.Path) {
		return "", false
	}
	return link, true
}
