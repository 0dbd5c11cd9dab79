// Package httputil provides HTTP-related helpers and constants shared by the client and transports.
package httputil

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Header names used across packages.
const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	HeaderLink          = "Link"
	HeaderETag          = "ETag"
	HeaderIfNoneMatch   = "If-None-Match"
	HeaderRequestID     = "X-Request-Id"
)

// Media types the client encodes and decodes.
const (
	MediaTypeJSON = "application/json"
	MediaTypeForm = "application/x-www-form-urlencoded"
)

// MaxBodySize bounds how much of a response body is buffered in memory.
const MaxBodySize = 32 << 20

// ErrBodyTooLarge is returned by ReadBody when the limit is exceeded.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// IsIdempotent reports whether requests with method may be safely repeated
// (RFC 9110 section 9.2.2).
func IsIdempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace,
		http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// ReadBody reads r fully, failing with ErrBodyTooLarge past limit bytes.
// A non-positive limit uses MaxBodySize.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return data, nil
}

// IsJSONMediaType reports whether a Content-Type value denotes JSON,
// including vendor types such as application/vnd.github+json.
func IsJSONMediaType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == MediaTypeJSON || strings.HasSuffix(mediaType, "+json")
}

// IsValidMediaType validates a media type string according to RFC 2045/2046.
// Handles wildcards (*/* and type/*) and prevents invalid combinations (*/subtype).
func IsValidMediaType(mediaType string) bool {
	if mediaType == "*/*" {
		return true
	}

	if strings.HasSuffix(mediaType, "/*") {
		// Check format: type/* (e.g., application/*)
		parts := strings.Split(mediaType, "/")
		if len(parts) == 2 && parts[0] != "" && parts[0] != "*" {
			return true
		}
		return false
	}

	// The MIME parser also accepts bare tokens such as "json"; require type/subtype.
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	typ, subtype, ok := strings.Cut(parsed, "/")
	return ok && typ != "" && typ != "*" && subtype != "" && !strings.Contains(subtype, "/")
}

// RedactURL returns u without its query string, which may carry API keys.
func RedactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i] + "?REDACTED"
	}
	return u
}
