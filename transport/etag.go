package transport

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/erraggy/apiclient/internal/httputil"
)

type etagEntry struct {
	etag   string
	header http.Header
	body   []byte
}

// ETagCache remembers the ETag and body of successful GET responses and
// revalidates them with If-None-Match. A 304 answer is replaced by a 200
// carrying the cached body, so callers never see the 304.
type ETagCache struct {
	mu      sync.RWMutex
	entries map[string]etagEntry
}

// NewETagCache returns an empty cache.
func NewETagCache() *ETagCache {
	return &ETagCache{entries: make(map[string]etagEntry)}
}

// Len returns the number of cached responses.
func (c *ETagCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached response.
func (c *ETagCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]etagEntry)
}

// Middleware returns the caching middleware.
func (c *ETagCache) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Method != http.MethodGet {
				return next.RoundTrip(req)
			}
			key := req.URL.String()

			c.mu.RLock()
			entry, cached := c.entries[key]
			c.mu.RUnlock()

			if cached && req.Header.Get(httputil.HeaderIfNoneMatch) == "" {
				req = req.Clone(req.Context())
				req.Header.Set(httputil.HeaderIfNoneMatch, entry.etag)
			}

			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}

			switch {
			case resp.StatusCode == http.StatusNotModified && cached:
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return cachedResponse(req, resp, entry), nil

			case httputil.IsSuccess(resp.StatusCode) && resp.Header.Get(httputil.HeaderETag) != "":
				body, err := httputil.ReadBody(resp.Body, httputil.MaxBodySize)
				resp.Body.Close()
				if err != nil {
					return nil, err
				}
				c.mu.Lock()
				c.entries[key] = etagEntry{
					etag:   resp.Header.Get(httputil.HeaderETag),
					header: resp.Header.Clone(),
					body:   body,
				}
				c.mu.Unlock()
				resp.Body = io.NopCloser(bytes.NewReader(body))
				resp.ContentLength = int64(len(body))
			}
			return resp, nil
		})
	}
}

// ETagCacheMiddleware returns middleware backed by a new cache.
func ETagCacheMiddleware() Middleware {
	return NewETagCache().Middleware()
}

func cachedResponse(req *http.Request, notModified *http.Response, entry etagEntry) *http.Response {
	header := entry.header.Clone()
	// Fresh rate limit and date headers from the revalidation win.
	for k, v := range notModified.Header {
		header[k] = v
	}
	header.Set("Content-Length", strconv.Itoa(len(entry.body)))
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         notModified.Proto,
		ProtoMajor:    notModified.ProtoMajor,
		ProtoMinor:    notModified.ProtoMinor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.body)),
		ContentLength: int64(len(entry.body)),
		Request:       req,
	}
}
