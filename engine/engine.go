package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Engine fetches a single page for the crawler.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch performs one GET for req. A non-nil error is always a
	// *FetchError and means the request failed at the network level.
	// Non-2xx and non-HTML responses are not errors: they come back as a
	// result with Outcome == OutcomeSkip.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// Outcome classifies a completed fetch.
type Outcome int

const (
	// OutcomeHTML means a 2xx text/html response; HTML holds the body.
	OutcomeHTML Outcome = iota
	// OutcomeSkip means the response was expected but unusable; SkipReason says why.
	OutcomeSkip
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHTML:
		return "html"
	case OutcomeSkip:
		return "skip"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// FetchResult is the output of a fetch that reached the server.
type FetchResult struct {
	Outcome     Outcome
	HTML        string
	SkipReason  string
	StatusCode  int
	ContentType string
	FinalURL    string
	EngineName  string
}

// FetchError wraps a network-level failure: DNS, connection, TLS, timeout
// or a body that could not be read.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by the per-fetch deadline.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
