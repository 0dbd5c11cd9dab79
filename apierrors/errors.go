package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for use with errors.Is().
// These allow quick checks without type assertions.
var (
	// ErrHTTP indicates the server answered with a non-2xx status.
	ErrHTTP = errors.New("http error")

	// ErrUnauthorized indicates a 401 response.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates a 403 response that is not a rate limit.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates a 404 response.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the server rejected the request for exceeding a rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuth indicates credentials could not be produced (refresh, exchange, signing).
	ErrAuth = errors.New("authentication error")

	// ErrTokenExpired indicates the access token expired and automatic refresh is disabled.
	ErrTokenExpired = errors.New("token expired")

	// ErrDecode indicates a response body could not be decoded.
	ErrDecode = errors.New("decode error")

	// ErrPagination indicates a pagination walk could not continue safely.
	ErrPagination = errors.New("pagination error")

	// ErrParse indicates an API description document could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrValidation indicates request arguments did not satisfy an operation's parameters.
	ErrValidation = errors.New("validation error")

	// ErrConfig indicates an invalid configuration.
	ErrConfig = errors.New("configuration error")
)

// maxMessageBody bounds how much of a non-JSON error body is echoed in Error().
const maxMessageBody = 512

// FieldError describes a field-level validation failure reported by an API.
type FieldError struct {
	Resource string `json:"resource,omitempty"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// HTTPError represents a non-2xx response from an API.
type HTTPError struct {
	// Method is the HTTP method of the failed request
	Method string
	// URL is the request URL with the query string removed
	URL string
	// StatusCode is the HTTP response status code
	StatusCode int
	// Header holds the response headers
	Header http.Header
	// Body is the raw response body
	Body []byte
	// Message is the error description extracted from the body, if any
	Message string
	// DocumentationURL points to API documentation for the error, if provided
	DocumentationURL string
	// Errors contains field-level validation failures, if provided
	Errors []FieldError
	// RetryAfter is how long the server asked the client to wait (rate limits)
	RetryAfter time.Duration
}

// NewHTTPError builds an HTTPError from a response status, headers and body.
// JSON bodies are inspected for the common message fields used by REST APIs
// ("message", "error", "error_description", "detail") and for a field error list.
func NewHTTPError(method, url string, statusCode int, header http.Header, body []byte, now time.Time) *HTTPError {
	e := &HTTPError{
		Method:     method,
		URL:        stripQuery(url),
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
	}

	var wire struct {
		Message          string          `json:"message"`
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Detail           string          `json:"detail"`
		DocumentationURL string          `json:"documentation_url"`
		Errors           []FieldError    `json:"errors"`
	}
	if len(body) > 0 && json.Unmarshal(body, &wire) == nil {
		e.DocumentationURL = wire.DocumentationURL
		e.Errors = wire.Errors
		switch {
		case wire.Message != "":
			e.Message = wire.Message
		case wire.ErrorDescription != "":
			e.Message = wire.ErrorDescription
		case wire.Detail != "":
			e.Message = wire.Detail
		case len(wire.Error) > 0:
			e.Message = errorFieldMessage(wire.Error)
		}
	}
	if e.Message == "" && len(body) > 0 && !json.Valid(body) {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxMessageBody {
			msg = msg[:maxMessageBody] + "..."
		}
		e.Message = msg
	}
	if e.Message == "" {
		e.Message = http.StatusText(statusCode)
	}

	if e.isRateLimit() {
		e.RetryAfter = RetryAfter(header, now)
	}
	return e
}

// errorFieldMessage handles "error" being either a string or an object with a message.
func errorFieldMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Message
	}
	return ""
}

// Error returns a human-readable error message.
func (e *HTTPError) Error() string {
	var b strings.Builder
	b.WriteString("http error")
	if e.Method != "" || e.URL != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.URL)
	}
	fmt.Fprintf(&b, ": status %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	for _, fe := range e.Errors {
		detail := fe.Message
		if detail == "" {
			detail = fe.Code
		}
		fmt.Fprintf(&b, "; %s.%s: %s", fe.Resource, fe.Field, detail)
	}
	if e.RetryAfter > 0 {
		fmt.Fprintf(&b, " (retry after %s)", e.RetryAfter)
	}
	return b.String()
}

// Is reports whether target matches this error type.
// Matches ErrHTTP always, plus the status-specific sentinel when appropriate.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrHTTP:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden && !e.isRateLimit()
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.isRateLimit()
	}
	return false
}

// isRateLimit reports 429s, and 403s whose body or headers say the quota is exhausted.
func (e *HTTPError) isRateLimit() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if e.StatusCode != http.StatusForbidden {
		return false
	}
	if e.Header != nil && e.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	lower := strings.ToLower(e.Message)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "abuse detection")
}

// RetryAfter computes the backoff a rate-limited response asks for. The
// Retry-After header (seconds or HTTP date) wins over X-RateLimit-Reset
// (Unix seconds). Returns zero when neither yields a positive duration.
func RetryAfter(header http.Header, now time.Time) time.Duration {
	if header == nil {
		return 0
	}
	if v := header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
		}
	}
	if v := header.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(unix, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// AuthError represents a failure to obtain or refresh credentials.
type AuthError struct {
	// Scheme identifies the credential type: "oauth2", "jwt", "installation", ...
	Scheme string
	// Op is the failing step: "refresh", "exchange", "sign", "load", ...
	Op string
	// Expired is true when the token is expired and could not be refreshed automatically
	Expired bool
	// Message provides additional context
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *AuthError) Error() string {
	msg := "authentication error"
	if e.Expired {
		msg = "token expired"
	}
	if e.Scheme != "" {
		msg += " (" + e.Scheme
		if e.Op != "" {
			msg += " " + e.Op
		}
		msg += ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
// Matches ErrAuth, and ErrTokenExpired when Expired is set.
func (e *AuthError) Is(target error) bool {
	if target == ErrAuth {
		return true
	}
	return target == ErrTokenExpired && e.Expired
}

// DecodeError represents a response body that could not be decoded into the requested type.
type DecodeError struct {
	// URL is the request URL
	URL string
	// ContentType is the response Content-Type
	ContentType string
	// Target is the Go type the body was decoded into
	Target string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *DecodeError) Error() string {
	msg := "decode error"
	if e.URL != "" {
		msg += " for " + stripQuery(e.URL)
	}
	if e.Target != "" {
		msg += " into " + e.Target
	}
	if e.ContentType != "" {
		msg += " (content-type " + e.ContentType + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// PaginationError represents a pagination walk that stopped before exhausting its pages.
type PaginationError struct {
	// URL is the continuation link or cursor that could not be followed
	URL string
	// Page is the 1-based page number at which the walk stopped
	Page int
	// Message describes the failure
	Message string
}

// Error returns a human-readable error message.
func (e *PaginationError) Error() string {
	msg := "pagination error"
	if e.Page > 0 {
		msg += fmt.Sprintf(" at page %d", e.Page)
	}
	if e.URL != "" {
		msg += " (" + stripQuery(e.URL) + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *PaginationError) Is(target error) bool {
	return target == ErrPagination
}

// ParseError represents a failure to parse an API description document.
type ParseError struct {
	// Path is the file path or source identifier
	Path string
	// Line is the line number where the error occurred (0 if unknown)
	Line int
	// Message describes the parsing failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ValidationError represents request arguments that do not fit an operation.
type ValidationError struct {
	// Operation is the operationId being invoked
	Operation string
	// Parameter is the offending parameter name
	Parameter string
	// Message describes the validation failure
	Message string
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Operation != "" {
		msg += " in " + e.Operation
	}
	if e.Parameter != "" {
		msg += " for parameter " + e.Parameter
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConfigError represents an invalid configuration or input.
// This includes invalid options, missing required inputs, and conflicting settings.
type ConfigError struct {
	// Option is the name of the problematic configuration option
	Option string
	// Value is the invalid value that was provided (may be nil)
	Value any
	// Message describes the configuration error
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Option != "" {
		msg += " for " + e.Option
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
