package engine

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	tls "github.com/refraction-networking/utls"
)

// Defaults for HTTPEngine options.
const (
	DefaultUserAgent    = "SitemapGenerator/1.0 (+https://sitemap-generator.example.com)"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 10 << 20
)

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64

	// ChromeTLS dials https targets with a Chrome-like ClientHello.
	ChromeTLS bool
}

// HTTPEngine fetches pages with net/http. It performs exactly one GET per
// call and never retries.
type HTTPEngine struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine. Zero-valued options take defaults.
func NewHTTPEngine(opts Options) *HTTPEngine {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.ChromeTLS {
		transport.DialTLSContext = dialChromeTLS
		transport.ForceAttemptHTTP2 = false
	}

	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent:    opts.UserAgent,
		timeout:      opts.Timeout,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (e *HTTPEngine) Name() string { return "http" }

// Fetch issues one GET bounded by the engine timeout.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("User-Agent", e.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	result := &FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		EngineName:  e.Name(),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Outcome = OutcomeSkip
		result.SkipReason = fmt.Sprintf("status %d", resp.StatusCode)
		return result, nil
	}
	if !isHTMLContentType(result.ContentType) {
		result.Outcome = OutcomeSkip
		result.SkipReason = fmt.Sprintf("content-type %q", result.ContentType)
		return result, nil
	}

	body, err := e.readBody(resp)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	result.Outcome = OutcomeHTML
	result.HTML = string(body)
	return result, nil
}

// readBody decodes the response according to Content-Encoding and reads at
// most maxBodyBytes. Longer bodies are truncated rather than rejected.
func (e *HTTPEngine) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, e.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// isHTMLContentType returns true if the content-type header declares HTML.
func isHTMLContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "text/html")
}
