// Package normalize canonicalizes page URLs so that surface variants of the
// same resource compare equal in a crawl's visited set.
//
// A normalized URL is scheme://host[:port] followed by a cleaned path:
// query string and fragment are dropped, dot segments and repeated slashes
// are collapsed, and trailing slashes are removed except for the root, which
// is always "/". Dropping the query conflates pages that differ only by
// query parameters; that approximation is accepted.
package normalize

import (
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/use-agent/sitemapper/models"
)

// URL returns the canonical form of raw. raw must be an absolute http or
// https URL, otherwise a *models.InvalidURLError is returned.
func URL(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + origin(u) + cleanPath(u.EscapedPath()), nil
}

// Host returns the lowercase hostname of raw, without port.
func Host(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Hostname()), nil
}

// MustURL is like URL but panics on error. Intended for tests and constants.
func MustURL(raw string) string {
	n, err := URL(raw)
	if err != nil {
		panic(err)
	}
	return n
}

func parse(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &models.InvalidURLError{URL: raw, Reason: "empty"}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &models.InvalidURLError{URL: raw, Reason: err.Error()}
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return nil, &models.InvalidURLError{URL: raw, Reason: "not an absolute URL"}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &models.InvalidURLError{URL: raw, Reason: "unsupported scheme " + u.Scheme}
	}
	return u, nil
}

// origin renders host[:port] with the scheme's default port elided.
func origin(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}
