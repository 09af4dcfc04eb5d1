package models

import (
	"fmt"
	"net/url"
)

// Crawl request bounds and defaults.
const (
	DefaultMaxDepth = 2
	DefaultMaxPages = 50
	MaxDepthLimit   = 10
	MaxPagesLimit   = 200
)

// CrawlPayload is the JSON body of POST /api/v1/crawl. The bounds are
// pointers so an explicit 0 is rejected instead of taking the default.
type CrawlPayload struct {
	URL      string `json:"url" binding:"required,url"`
	MaxDepth *int   `json:"maxDepth,omitempty"`
	MaxPages *int   `json:"maxPages,omitempty"`
	MaxAge   int    `json:"maxAge,omitempty" binding:"omitempty,min=0"`

	WebhookURL    string `json:"webhookUrl,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// Request converts the payload, filling only the bounds that were omitted.
// The result still needs Validate.
func (p *CrawlPayload) Request() CrawlRequest {
	req := CrawlRequest{
		URL:           p.URL,
		MaxDepth:      DefaultMaxDepth,
		MaxPages:      DefaultMaxPages,
		MaxAge:        p.MaxAge,
		WebhookURL:    p.WebhookURL,
		WebhookSecret: p.WebhookSecret,
	}
	if p.MaxDepth != nil {
		req.MaxDepth = *p.MaxDepth
	}
	if p.MaxPages != nil {
		req.MaxPages = *p.MaxPages
	}
	return req
}

// CrawlRequest describes one crawl. It is also the body API clients send;
// zero bounds are omitted from JSON and take the defaults.
type CrawlRequest struct {
	// URL is the seed page. Required, absolute http(s).
	URL string `json:"url"`

	// MaxDepth limits the number of BFS levels, the seed being level 1.
	// Default: 2. Max: 10.
	MaxDepth int `json:"maxDepth,omitempty"`

	// MaxPages limits the number of page records produced.
	// Default: 50. Max: 200.
	MaxPages int `json:"maxPages,omitempty"`

	// MaxAge, in milliseconds, allows a cached result younger than this to be
	// returned instead of crawling again. 0 disables the cache lookup.
	MaxAge int `json:"maxAge,omitempty"`

	WebhookURL    string `json:"webhookUrl,omitempty"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *CrawlRequest) Defaults() {
	if r.MaxDepth == 0 {
		r.MaxDepth = DefaultMaxDepth
	}
	if r.MaxPages == 0 {
		r.MaxPages = DefaultMaxPages
	}
}

// Validate checks the request without relying on binding tags, so callers
// outside the HTTP layer (CLI, tests) get the same rules. Every problem is
// collected before returning.
func (r *CrawlRequest) Validate() error {
	var errs []string
	if r.URL == "" {
		errs = append(errs, "url: is required")
	} else if u, err := url.Parse(r.URL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, "url: must be an absolute URL")
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("url: unsupported scheme %q", u.Scheme))
	}
	if r.MaxDepth < 1 || r.MaxDepth > MaxDepthLimit {
		errs = append(errs, fmt.Sprintf("maxDepth: must be between 1 and %d", MaxDepthLimit))
	}
	if r.MaxPages < 1 || r.MaxPages > MaxPagesLimit {
		errs = append(errs, fmt.Sprintf("maxPages: must be between 1 and %d", MaxPagesLimit))
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// PageRecord is one successfully fetched HTML page.
type PageRecord struct {
	URL          string  `json:"url"`
	Title        string  `json:"title,omitempty"`
	LastModified string  `json:"lastModified,omitempty"`
	Priority     float64 `json:"priority"`
}

// CrawlData is the payload of a successful crawl response.
type CrawlData struct {
	BaseURL    string       `json:"baseUrl"`
	Pages      []PageRecord `json:"pages"`
	TotalPages int          `json:"totalPages"`

	// CrawlTime is the crawl duration in milliseconds.
	CrawlTime int64 `json:"crawlTime"`
}

// CrawlResponse is the response for POST /api/v1/crawl.
type CrawlResponse struct {
	Success bool       `json:"success"`
	Data    *CrawlData `json:"data,omitempty"`

	// CacheStatus is "hit" when the data was served from cache, "miss" when
	// a cache lookup was requested but a fresh crawl ran.
	CacheStatus string `json:"cacheStatus,omitempty"`

	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}
