// Package netutil builds the outbound HTTP clients shared by the feed, LLM and publisher integrations.
package netutil

import (
	"net/http"
	"net/url"
	"time"
)

// NewClient returns an HTTP client with the given timeout and an optional proxy.
// An unparseable proxy URL is ignored and the client connects directly.
func NewClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
