package transport

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/projectglitch/glitch/internal/logger"
)

// Single shared client. Upstream sports APIs are treated as fallible,
// single-attempt collaborators: one request, bounded timeout, no retries.
var httpClient *http.Client

const requestTimeout = 15 * time.Second

// GetHTTPClient returns the shared HTTP client, creating it on first use
func GetHTTPClient() *http.Client {
	if httpClient != nil {
		return httpClient
	}
	httpClient = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
		Timeout: requestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
	return httpClient
}

// Get fetches a URL with browser-like headers and returns the decoded body.
// Handles gzip, deflate and brotli Content-Encoding transparently.
func Get(url string, headers map[string]string) ([]byte, error) {
	logger.Inform("HTTP get called for", url)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/json,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := GetHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned error status %d", resp.StatusCode)
	}

	return readBody(resp)
}

// GetWithStatus behaves like Get but hands back the status code on non-200
// responses instead of discarding it, so callers can react to quota errors
// (429/403) with a fallback rather than a blind failure.
func GetWithStatus(url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := GetHTTPClient().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	return data, resp.StatusCode, err
}

// readBody decodes the response body according to its Content-Encoding
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.ReadCloser = resp.Body

	switch encoding := resp.Header.Get("Content-Encoding"); encoding {
	case "gzip":
		logger.Debug("Handling gzip compressed content")
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		reader = gz
		defer reader.Close()
	case "deflate":
		logger.Debug("Handling deflate compressed content")
		reader = flate.NewReader(resp.Body)
		defer reader.Close()
	case "br":
		logger.Debug("Handling brotli compressed content")
		reader = io.NopCloser(brotli.NewReader(resp.Body))
	default:
		if encoding != "" {
			logger.Warn("Unknown content encoding:", encoding)
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}
