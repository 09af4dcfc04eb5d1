package models

// Valid changefreq tokens from the sitemap protocol.
var ChangeFreqs = []string{"always", "hourly", "daily", "weekly", "monthly", "yearly", "never"}

// SitemapEntry is one <url> element of a generated sitemap.
type SitemapEntry struct {
	URL        string   `json:"url"`
	Lastmod    string   `json:"lastmod,omitempty"`
	Changefreq string   `json:"changefreq,omitempty"`
	Priority   *float64 `json:"priority,omitempty"`
}

// SitemapOptions gate the optional child elements of each <url>.
type SitemapOptions struct {
	IncludeLastmod    bool
	IncludeChangefreq bool
	IncludePriority   bool
}

// DefaultSitemapOptions includes every optional element.
func DefaultSitemapOptions() SitemapOptions {
	return SitemapOptions{
		IncludeLastmod:    true,
		IncludeChangefreq: true,
		IncludePriority:   true,
	}
}

// SitemapRequest is the payload for POST /api/v1/sitemap/generate and
// POST /api/v1/sitemap/download. Page entries are checked by the sitemap
// validator rather than binding tags so every problem is reported.
type SitemapRequest struct {
	BaseURL string         `json:"baseUrl" binding:"required,url"`
	Pages   []SitemapEntry `json:"pages"`

	// Include flags default to true when omitted.
	IncludeLastmod    *bool `json:"includeLastmod,omitempty"`
	IncludeChangefreq *bool `json:"includeChangefreq,omitempty"`
	IncludePriority   *bool `json:"includePriority,omitempty"`
}

// Options resolves the include flags, defaulting each to true.
func (r *SitemapRequest) Options() SitemapOptions {
	opts := DefaultSitemapOptions()
	if r.IncludeLastmod != nil {
		opts.IncludeLastmod = *r.IncludeLastmod
	}
	if r.IncludeChangefreq != nil {
		opts.IncludeChangefreq = *r.IncludeChangefreq
	}
	if r.IncludePriority != nil {
		opts.IncludePriority = *r.IncludePriority
	}
	return opts
}

// SitemapData is the payload of a successful sitemap generation response.
type SitemapData struct {
	XML         string `json:"xml"`
	PageCount   int    `json:"pageCount"`
	GeneratedAt string `json:"generatedAt"`
}

// SitemapResponse is the response for /api/v1/sitemap/generate.
type SitemapResponse struct {
	Success bool         `json:"success"`
	Data    *SitemapData `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    string       `json:"code,omitempty"`
	Details []string     `json:"details,omitempty"`
}
