// Package crawler runs breadth-first, same-domain crawls bounded by depth and
// page budget, producing the page records a sitemap is built from.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/use-agent/sitemapper/engine"
	"github.com/use-agent/sitemapper/extract"
	"github.com/use-agent/sitemapper/models"
	"github.com/use-agent/sitemapper/normalize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Defaults for Crawler options.
const (
	DefaultBatchSize = 5
	DefaultDelay     = 200 * time.Millisecond
)

// PriorityFunc assigns the sitemap priority of a page found at the given
// level. The seed is level 1.
type PriorityFunc func(level int) float64

// FixedPriority gives every page 0.5.
func FixedPriority(int) float64 { return 0.5 }

// DepthPriority favours shallow pages: 1.0 - 0.2 per level, floored at 0.1.
func DepthPriority(level int) float64 {
	p := 1.0 - float64(level)*0.2
	return math.Round(math.Max(0.1, p)*10) / 10
}

// PriorityByName maps a configuration value to a PriorityFunc. Unknown names
// fall back to FixedPriority.
func PriorityByName(name string) PriorityFunc {
	if name == "depth" {
		return DepthPriority
	}
	return FixedPriority
}

// Result is the outcome of one crawl.
type Result struct {
	BaseURL string
	Pages   []models.PageRecord

	// Visited counts every URL dispatched to the fetcher, including skipped
	// and failed ones.
	Visited  int
	Duration time.Duration
}

// Data converts the result to its API payload.
func (r *Result) Data() *models.CrawlData {
	pages := r.Pages
	if pages == nil {
		pages = []models.PageRecord{}
	}
	return &models.CrawlData{
		BaseURL:    r.BaseURL,
		Pages:      pages,
		TotalPages: len(pages),
		CrawlTime:  r.Duration.Milliseconds(),
	}
}

// Crawler owns crawl configuration. It holds no per-crawl state, so one
// Crawler may serve concurrent Crawl calls.
type Crawler struct {
	engine    engine.Engine
	batchSize int
	delay     time.Duration
	priority  PriorityFunc
	logger    *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithBatchSize sets how many fetches run concurrently within a batch.
func WithBatchSize(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithDelay sets the minimum spacing between two fetch dispatches. Zero
// disables the delay.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithPriority sets the priority policy applied to every page of a crawl.
func WithPriority(fn PriorityFunc) Option {
	return func(c *Crawler) {
		if fn != nil {
			c.priority = fn
		}
	}
}

// WithLogger sets the logger used for crawl progress and per-URL failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Crawler fetching through e.
func New(e engine.Engine, opts ...Option) *Crawler {
	c := &Crawler{
		engine:    e,
		batchSize: DefaultBatchSize,
		delay:     DefaultDelay,
		priority:  FixedPriority,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// crawlState is the mutable state of a single crawl. Only the goroutine
// running Crawl touches it; fetch workers report back over a channel.
type crawlState struct {
	baseURL  string
	baseHost string
	visited  map[string]struct{}
	pages    []models.PageRecord
	maxDepth int
	maxPages int
	limiter  *rate.Limiter
}

func (s *crawlState) full() bool { return len(s.pages) >= s.maxPages }

func (s *crawlState) seen(u string) bool {
	_, ok := s.visited[u]
	return ok
}

// pageOutcome is what a fetch worker sends back to the crawl loop.
type pageOutcome struct {
	url    string
	record *models.PageRecord
	links  []string
}

// Crawl fetches the seed and follows same-domain links level by level until
// req.MaxDepth levels are done, the frontier is empty, or req.MaxPages
// records exist. Zero MaxDepth and MaxPages take the defaults.
//
// An invalid seed returns *models.InvalidURLError and out-of-range bounds
// return *models.ValidationError, both before any fetch. Per-page skips and
// failures never abort the crawl. If ctx is cancelled, dispatch stops and the
// pages collected so far are returned together with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, req models.CrawlRequest) (*Result, error) {
	start := time.Now()

	req.Defaults()
	seed, err := normalize.URL(req.URL)
	if err != nil {
		crawlsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if err := req.Validate(); err != nil {
		crawlsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	host, _ := normalize.Host(seed)

	st := &crawlState{
		baseURL:  seed,
		baseHost: host,
		visited:  make(map[string]struct{}),
		maxDepth: req.MaxDepth,
		maxPages: req.MaxPages,
		limiter:  c.newLimiter(),
	}

	c.logger.Info("crawl started", "url", seed, "max_depth", st.maxDepth, "max_pages", st.maxPages)

	var crawlErr error
	frontier := []string{seed}
	for level := 1; level <= st.maxDepth && len(frontier) > 0 && !st.full(); level++ {
		frontier, crawlErr = c.crawlLevel(ctx, st, frontier, level)
		if crawlErr != nil {
			break
		}
	}

	result := &Result{
		BaseURL:  seed,
		Pages:    st.pages,
		Visited:  len(st.visited),
		Duration: time.Since(start),
	}

	status := "ok"
	if crawlErr != nil {
		status = "cancelled"
	}
	crawlsTotal.WithLabelValues(status).Inc()
	crawlDuration.Observe(result.Duration.Seconds())
	crawlPages.Observe(float64(len(result.Pages)))

	c.logger.Info("crawl completed",
		"url", seed,
		"pages", len(result.Pages),
		"visited", result.Visited,
		"duration", result.Duration,
		"error", crawlErr,
	)
	return result, crawlErr
}

func (c *Crawler) newLimiter() *rate.Limiter {
	if c.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(c.delay), 1)
}

// crawlLevel processes one frontier in sequential batches and returns the
// deduplicated, unvisited links discovered for the next level. It returns a
// nil frontier once the page budget is reached.
func (c *Crawler) crawlLevel(ctx context.Context, st *crawlState, frontier []string, level int) ([]string, error) {
	if remaining := st.maxPages - len(st.pages); len(frontier) > remaining {
		frontier = frontier[:remaining]
	}

	c.logger.Debug("crawling level", "level", level, "frontier", len(frontier))

	var discovered []string
	for i := 0; i < len(frontier); i += c.batchSize {
		end := min(i+c.batchSize, len(frontier))
		links, err := c.runBatch(ctx, st, frontier[i:end], level)
		discovered = append(discovered, links...)
		if err != nil {
			return nil, err
		}
		if st.full() {
			c.logger.Debug("page budget reached", "pages", len(st.pages), "level", level)
			return nil, nil
		}
	}

	next := make([]string, 0, len(discovered))
	queued := make(map[string]struct{}, len(discovered))
	for _, link := range discovered {
		if st.seen(link) {
			continue
		}
		if _, dup := queued[link]; dup {
			continue
		}
		queued[link] = struct{}{}
		next = append(next, link)
	}
	return next, nil
}

// runBatch dispatches one batch concurrently and merges the outcomes in
// completion order. URLs are marked visited before their fetch starts.
func (c *Crawler) runBatch(ctx context.Context, st *crawlState, batch []string, level int) ([]string, error) {
	outcomes := make(chan pageOutcome, len(batch))
	priority := c.priority(level)

	var g errgroup.Group
	g.SetLimit(c.batchSize)

	var dispatchErr error
	for _, pageURL := range batch {
		if st.seen(pageURL) || st.full() {
			continue
		}
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}
		if err := st.limiter.Wait(ctx); err != nil {
			dispatchErr = waitErr(ctx, err)
			break
		}
		st.visited[pageURL] = struct{}{}

		g.Go(func() error {
			outcomes <- c.fetchPage(ctx, pageURL, st.baseHost, priority)
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	var links []string
	for out := range outcomes {
		if out.record == nil || st.full() {
			continue
		}
		st.pages = append(st.pages, *out.record)
		links = append(links, out.links...)
	}
	return links, dispatchErr
}

// waitErr prefers the context error over the limiter's own message, which
// is returned when the deadline would expire before the next token.
func waitErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return context.DeadlineExceeded
	}
	return err
}

// fetchPage fetches one URL and turns an HTML response into a page record
// plus its outbound links. Skips and failures yield an empty outcome.
func (c *Crawler) fetchPage(ctx context.Context, pageURL, baseHost string, priority float64) pageOutcome {
	out := pageOutcome{url: pageURL}

	start := time.Now()
	res, err := c.engine.Fetch(ctx, &engine.FetchRequest{URL: pageURL})
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchesTotal.WithLabelValues("failure").Inc()
		var fe *engine.FetchError
		if errors.As(err, &fe) && fe.Timeout() {
			c.logger.Warn("fetch timed out", "url", pageURL, "error", err)
		} else {
			c.logger.Warn("fetch failed", "url", pageURL, "error", err)
		}
		return out
	}
	if res.Outcome != engine.OutcomeHTML {
		fetchesTotal.WithLabelValues("skip").Inc()
		c.logger.Debug("fetch skipped", "url", pageURL, "reason", res.SkipReason)
		return out
	}

	doc, err := extract.Parse(res.HTML)
	if err != nil {
		fetchesTotal.WithLabelValues("failure").Inc()
		c.logger.Warn("parse failed", "url", pageURL, "error", err)
		return out
	}
	fetchesTotal.WithLabelValues("html").Inc()

	meta := doc.Metadata()
	out.record = &models.PageRecord{
		URL:          pageURL,
		Title:        meta.Title,
		LastModified: meta.LastModified,
		Priority:     priority,
	}
	out.links = doc.Links(pageURL, baseHost)
	return out
}
