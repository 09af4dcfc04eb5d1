package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/sitemapper/engine"
	"github.com/use-agent/sitemapper/models"
)

// fakeEngine serves canned pages keyed by URL and records every fetch.
type fakeEngine struct {
	pages    map[string]string
	skip     map[string]bool
	fail     map[string]bool
	latency  time.Duration
	mu       sync.Mutex
	fetched  map[string]int
	order    []string
	inFlight int
	maxSeen  int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		pages:   make(map[string]string),
		skip:    make(map[string]bool),
		fail:    make(map[string]bool),
		fetched: make(map[string]int),
	}
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	f.mu.Lock()
	f.fetched[req.URL]++
	f.order = append(f.order, req.URL)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.latency > 0 {
		time.Sleep(f.latency)
	}

	switch {
	case f.fail[req.URL]:
		return nil, &engine.FetchError{URL: req.URL, Err: errors.New("connection reset")}
	case f.skip[req.URL]:
		return &engine.FetchResult{Outcome: engine.OutcomeSkip, SkipReason: "status 404", StatusCode: 404}, nil
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return &engine.FetchResult{Outcome: engine.OutcomeSkip, SkipReason: "status 404", StatusCode: 404}, nil
	}
	return &engine.FetchResult{Outcome: engine.OutcomeHTML, HTML: body, StatusCode: 200}, nil
}

func (f *fakeEngine) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func page(title string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>", title)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, l, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newTestCrawler(e engine.Engine, opts ...Option) *Crawler {
	base := []Option{
		WithDelay(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(e, append(base, opts...)...)
}

func assertNoDuplicatePages(t *testing.T, pages []models.PageRecord) {
	t.Helper()
	seen := make(map[string]bool)
	for _, p := range pages {
		if seen[p.URL] {
			t.Errorf("page %s recorded twice", p.URL)
		}
		seen[p.URL] = true
	}
}

func assertNoDuplicateFetches(t *testing.T, f *fakeEngine) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for u, n := range f.fetched {
		if n > 1 {
			t.Errorf("%s fetched %d times", u, n)
		}
	}
}

func TestCrawl_EndToEnd(t *testing.T) {
	f := newFakeEngine()
	f.pages["https://example.com/"] = page("Home", "/a", "/b", "/c")
	for _, child := range []string{"a", "b", "c"} {
		f.pages["https://example.com/"+child] = page(strings.ToUpper(child),
			"/"+child+"/1", "/"+child+"/2")
	}

	res, err := newTestCrawler(f).Crawl(context.Background(), models.CrawlRequest{
		URL:      "https://example.com",
		MaxDepth: 2,
		MaxPages: 10,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}

	if len(res.Pages) > 10 {
		t.Fatalf("got %d pages, want at most 10", len(res.Pages))
	}
	if len(res.Pages) != 4 {
		t.Errorf("got %d pages, want 4 (seed plus three children)", len(res.Pages))
	}
	if res.Pages[0].URL != "https://example.com/" {
		t.Errorf("first page = %s, want the seed", res.Pages[0].URL)
	}
	if res.Pages[0].Title != "Home" {
		t.Errorf("seed title = %q, want Home", res.Pages[0].Title)
	}
	if res.BaseURL != "https://example.com/" {
		t.Errorf("BaseURL = %s", res.BaseURL)
	}
	for _, p := range res.Pages {
		if p.Priority != 0.5 {
			t.Errorf("priority of %s = %v, want 0.5", p.URL, p.Priority)
		}
	}
	assertNoDuplicatePages(t, res.Pages)
	assertNoDuplicateFetches(t, f)

	if got := f.fetchCount(); got != 4 {
		t.Errorf("fetched %d URLs, want 4; grandchildren must not be dispatched", got)
	}
	if res.Visited != 4 {
		t.Errorf("Visited = %d, want 4", res.Visited)
	}
}

func TestCrawl_DepthOneFetchesOnlySeed(t *testing.T) {
	f := newFakeEngine()
	f.pages["https://site.example/"] = page("Seed", "/one", "/two")
	f.pages["https://site.example/one"] = page("One")
	f.pages["https://site.example/two"] = page("Two")

	res, err := newTestCrawler(f).Crawl(context.Background(), models.CrawlRequest{
		URL:      "https://site.example/",
		MaxDepth: 1,
		MaxPages: 50,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Errorf("got %d pages, want 1", len(res.Pages))
	}
	if got := f.fetchCount(); got != 1 {
		t.Errorf("fetched %d URLs, want only the seed", got)
	}
}

func TestCrawl_PageBudget(t *testing.T) {
	f := newFakeEngine()
	var links []string
	for i := range 20 {
		u := fmt.Sprintf("/p%d", i)
		links = append(links, u)
		f.pages["https://site.example"+u] = page(u, "/deeper")
	}
	f.pages["https://site.example/"] = page("Seed", links...)
	f.pages["https://site.example/deeper"] = page("Deeper")

	tests := []struct {
		name     string
		maxPages int
	}{
		{"single page", 1},
		{"less than one batch", 4},
		{"spans batches", 7},
		{"exact batch boundary", 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.mu.Lock()
			f.fetched = make(map[string]int)
			f.order = nil
			f.mu.Unlock()

			res, err := newTestCrawler(f).Crawl(context.Background(), models.CrawlRequest{
				URL:      "https://site.example/",
				MaxDepth: 3,
				MaxPages: tt.maxPages,
			})
			if err != nil {
				t.Fatalf("Crawl returned error: %v", err)
			}
			if len(res.Pages) != tt.maxPages {
				t.Errorf("got %d pages, want %d", len(res.Pages), tt.maxPages)
			}
			if got := f.fetchCount(); got != tt.maxPages {
				t.Errorf("fetched %d URLs, want %d", got, tt.maxPages)
			}
			if f.fetched["https://site.example/deeper"] != 0 {
				t.Error("crawl continued past an exhausted budget")
			}
			assertNoDuplicatePages(t, res.Pages)
		})
	}
}

func TestCrawl_NoDuplicateDispatch(t *testing.T) {
	f := newFakeEngine()
	f.latency = 5 * time.Millisecond
	f.pages["https://site.example/"] = page("Seed", "/a", "/b", "/a/", "/a#top", "/b?x=1", "/")
	f.pages["https://site.example/a"] = page("A", "/", "/b", "/c")
	f.pages["https://site.example/b"] = page("B", "/a", "/c", "https://site.example/c/")
	f.pages["https://site.example/c"] = page("C", "/", "/a", "/b")

	res, err := newTestCrawler(f).Crawl(context.Background(), models.CrawlRequest{
		URL:      "https://site.example",
		MaxDepth: 5,
		MaxPages: 100,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(res.Pages) != 4 {
		t.Errorf("got %d pages, want 4", len(res.Pages))
	}
	assertNoDuplicatePages(t, res.Pages)
	assertNoDuplicateFetches(t, f)
}

func TestCrawl_SkipsAndFailuresStayVisited(t *testing.T) {
	f := newFakeEngine()
	f.pages["https://site.example/"] = page("Seed", "/skip", "/fail", "/ok")
	f.pages["https://site.example/ok"] = page("OK", "/skip", "/fail", "/missing")
	f.skip["https://site.example/skip"] = true
	f.fail["https://site.example/fail"] = true

	res, err := newTestCrawler(f).Crawl(context.Background(), models.CrawlRequest{
		URL:      "https://site.example/",
		MaxDepth: 4,
		MaxPages: 50,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}

	got := make(map[string]bool)
	for _, p := range res.Pages {
		got[p.URL] = true
	}
	if len(res.Pages) != 2 || !got["https://site.example/"] || !got["https://site.example/ok"] {
		t.Errorf("pages = %+v, want seed and /ok only", res.Pages)
	}
	assertNoDuplicateFetches(t, f)
	if res.Visited != 5 {
		t.Errorf("Visited = %d, want 5", res.Visited)
	}
}

func TestCrawl_SeedSkipped(t *testing.T) {
	f := newFakeEngine()
	f.skip["https://site.example/"] = true

	res, err := newTestCrawler(f).Crawl(context.Background(), models.CrawlRequest{URL: "https://site.example/"})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("got %d pages, want 0", len(res.Pages))
	}
	data := res.Data()
	if data.Pages == nil || data.TotalPages != 0 {
		t.Errorf("Data() = %+v, want empty non-nil pages", data)
	}
}

func TestCrawl_InvalidRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CrawlRequest
		wantURL bool
	}{
		{"empty url", models.CrawlRequest{}, true},
		{"relative url", models.CrawlRequest{URL: "/about"}, true},
		{"ftp scheme", models.CrawlRequest{URL: "ftp://site.example/"}, true},
		{"depth too large", models.CrawlRequest{URL: "https://site.example/", MaxDepth: 11}, false},
		{"negative pages", models.CrawlRequest{URL: "https://site.example/", MaxPages: -1}, false},
		{"pages too large", models.CrawlRequest{URL: "https://site.example/", MaxPages: 201}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeEngine()
			_, err := newTestCrawler(f).Crawl(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			var urlErr *models.InvalidURLError
			var valErr *models.ValidationError
			if tt.wantURL && !errors.As(err, &urlErr) {
				t.Errorf("error = %T (%v), want *models.InvalidURLError", err, err)
			}
			if !tt.wantURL && !errors.As(err, &valErr) {
				t.Errorf("error = %T (%v), want *models.ValidationError", err, err)
			}
			if f.fetchCount() != 0 {
				t.Error("engine was called for an invalid request")
			}
		})
	}
}

func TestCrawl_BatchConcurrencyBounded(t *testing.T) {
	f := newFakeEngine()
	f.latency = 10 * time.Millisecond
	var links []string
	for i := range 12 {
		u := fmt.Sprintf("/p%d", i)
		links = append(links, u)
		f.pages["https://site.example"+u] = page(u)
	}
	f.pages["https://site.example/"] = page("Seed", links...)

	res, err := newTestCrawler(f, WithBatchSize(5)).Crawl(context.Background(), models.CrawlRequest{
		URL:      "https://site.example/",
		MaxDepth: 2,
		MaxPages: 50,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(res.Pages) != 13 {
		t.Errorf("got %d pages, want 13", len(res.Pages))
	}
	f.mu.Lock()
	maxSeen := f.maxSeen
	f.mu.Unlock()
	if maxSeen > 5 {
		t.Errorf("%d fetches in flight, want at most 5", maxSeen)
	}
}

func TestCrawl_Cancelled(t *testing.T) {
	f := newFakeEngine()
	f.pages["https://site.example/"] = page("Seed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestCrawler(f).Crawl(ctx, models.CrawlRequest{URL: "https://site.example/"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if res == nil || len(res.Pages) != 0 {
		t.Errorf("result = %+v, want empty partial result", res)
	}
	if f.fetchCount() != 0 {
		t.Error("engine was called after cancellation")
	}
}

func TestCrawl_DelaySpacesDispatches(t *testing.T) {
	f := newFakeEngine()
	f.pages["https://site.example/"] = page("Seed", "/a", "/b")
	f.pages["https://site.example/a"] = page("A")
	f.pages["https://site.example/b"] = page("B")

	c := New(f, WithDelay(30*time.Millisecond), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	start := time.Now()
	res, err := c.Crawl(context.Background(), models.CrawlRequest{URL: "https://site.example/", MaxDepth: 2})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(res.Pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(res.Pages))
	}
	// Three dispatches need at least two full intervals.
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("crawl took %v, want at least two delay intervals", elapsed)
	}
}

func TestCrawl_DepthPriorityPolicy(t *testing.T) {
	f := newFakeEngine()
	f.pages["https://site.example/"] = page("Seed", "/child")
	f.pages["https://site.example/child"] = page("Child")

	res, err := newTestCrawler(f, WithPriority(DepthPriority)).Crawl(context.Background(), models.CrawlRequest{
		URL:      "https://site.example/",
		MaxDepth: 2,
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	want := map[string]float64{
		"https://site.example/":      0.8,
		"https://site.example/child": 0.6,
	}
	for _, p := range res.Pages {
		if p.Priority != want[p.URL] {
			t.Errorf("priority of %s = %v, want %v", p.URL, p.Priority, want[p.URL])
		}
	}
}

func TestPriorityPolicies(t *testing.T) {
	tests := []struct {
		level int
		depth float64
	}{
		{1, 0.8},
		{2, 0.6},
		{3, 0.4},
		{4, 0.2},
		{5, 0.1},
		{10, 0.1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("level %d", tt.level), func(t *testing.T) {
			if got := DepthPriority(tt.level); got != tt.depth {
				t.Errorf("DepthPriority(%d) = %v, want %v", tt.level, got, tt.depth)
			}
			if got := FixedPriority(tt.level); got != 0.5 {
				t.Errorf("FixedPriority(%d) = %v, want 0.5", tt.level, got)
			}
		})
	}

	if PriorityByName("depth")(1) != 0.8 || PriorityByName("fixed")(1) != 0.5 || PriorityByName("bogus")(1) != 0.5 {
		t.Error("PriorityByName returned the wrong policy")
	}
}
