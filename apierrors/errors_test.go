package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewHTTPError_MessageExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", 404, `{"message":"Not Found","documentation_url":"https://docs.example.com"}`, "Not Found"},
		{"error_description wins over error", 400, `{"error":"invalid_grant","error_description":"refresh token revoked"}`, "refresh token revoked"},
		{"detail field", 409, `{"detail":"already exists"}`, "already exists"},
		{"error string", 400, `{"error":"bad_request"}`, "bad_request"},
		{"error object", 400, `{"error":{"message":"nested message"}}`, "nested message"},
		{"plain text body", 500, "upstream exploded\n", "upstream exploded"},
		{"empty body falls back to status text", 502, "", "Bad Gateway"},
		{"json without known fields", 500, `{"foo":"bar"}`, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewHTTPError(http.MethodGet, "https://api.example.com/x?page=2", tt.status, http.Header{}, []byte(tt.body), testNow)
			assert.Equal(t, tt.message, e.Message)
			assert.Equal(t, "https://api.example.com/x", e.URL, "query string should be stripped")
			assert.Equal(t, tt.status, e.StatusCode)
		})
	}
}

func TestNewHTTPError_LongPlainBodyIsTruncated(t *testing.T) {
	body := make([]byte, 2000)
	for i := range body {
		body[i] = 'a'
	}
	e := NewHTTPError(http.MethodGet, "https://x", 500, nil, body, testNow)
	assert.Len(t, e.Message, maxMessageBody+3)
	assert.Len(t, e.Body, 2000, "raw body is kept intact")
}

func TestHTTPError_Error(t *testing.T) {
	e := NewHTTPError(http.MethodPost, "https://api.example.com/repos/o/r/issues", 422, nil,
		[]byte(`{"message":"Validation Failed","errors":[{"resource":"Issue","field":"title","code":"missing_field"},{"resource":"Issue","field":"body","message":"too long"}]}`), testNow)

	assert.Equal(t,
		"http error POST https://api.example.com/repos/o/r/issues: status 422: Validation Failed; Issue.title: missing_field; Issue.body: too long",
		e.Error())
	require.Len(t, e.Errors, 2)
}

func TestHTTPError_Is(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		match  []error
		miss   []error
	}{
		{"401", 401, nil, "", []error{ErrHTTP, ErrUnauthorized}, []error{ErrNotFound, ErrRateLimited, ErrForbidden}},
		{"403 permission", 403, nil, `{"message":"Resource not accessible by integration"}`, []error{ErrHTTP, ErrForbidden}, []error{ErrRateLimited}},
		{"403 rate limit message", 403, nil, `{"message":"API rate limit exceeded for installation"}`, []error{ErrHTTP, ErrRateLimited}, []error{ErrForbidden}},
		{"403 remaining zero", 403, http.Header{"X-Ratelimit-Remaining": {"0"}}, "", []error{ErrRateLimited}, []error{ErrForbidden}},
		{"404", 404, nil, "", []error{ErrHTTP, ErrNotFound}, []error{ErrUnauthorized}},
		{"429", 429, nil, "", []error{ErrHTTP, ErrRateLimited}, []error{ErrNotFound}},
		{"500", 500, nil, "", []error{ErrHTTP}, []error{ErrRateLimited, ErrAuth}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error = NewHTTPError(http.MethodGet, "https://x", tt.status, tt.header, []byte(tt.body), testNow)
			wrapped := fmt.Errorf("client: %w", err)
			for _, target := range tt.match {
				assert.True(t, errors.Is(wrapped, target), "expected match for %v", target)
			}
			for _, target := range tt.miss {
				assert.False(t, errors.Is(wrapped, target), "unexpected match for %v", target)
			}
		})
	}
}

func TestHTTPError_RetryAfter(t *testing.T) {
	t.Run("Retry-After seconds", func(t *testing.T) {
		e := NewHTTPError(http.MethodGet, "https://x", 429, http.Header{"Retry-After": {"30"}}, nil, testNow)
		assert.Equal(t, 30*time.Second, e.RetryAfter)
		assert.Contains(t, e.Error(), "(retry after 30s)")
	})

	t.Run("Retry-After HTTP date", func(t *testing.T) {
		h := http.Header{"Retry-After": {testNow.Add(2 * time.Minute).Format(http.TimeFormat)}}
		e := NewHTTPError(http.MethodGet, "https://x", 429, h, nil, testNow)
		assert.Equal(t, 2*time.Minute, e.RetryAfter)
	})

	t.Run("X-RateLimit-Reset", func(t *testing.T) {
		h := http.Header{"X-Ratelimit-Reset": {fmt.Sprint(testNow.Add(time.Minute).Unix())}, "X-Ratelimit-Remaining": {"0"}}
		e := NewHTTPError(http.MethodGet, "https://x", 403, h, nil, testNow)
		assert.Equal(t, time.Minute, e.RetryAfter)
	})

	t.Run("not computed for other statuses", func(t *testing.T) {
		e := NewHTTPError(http.MethodGet, "https://x", 500, http.Header{"Retry-After": {"30"}}, nil, testNow)
		assert.Zero(t, e.RetryAfter)
	})

	t.Run("reset in the past", func(t *testing.T) {
		h := http.Header{"X-Ratelimit-Reset": {fmt.Sprint(testNow.Add(-time.Minute).Unix())}}
		assert.Zero(t, RetryAfter(h, testNow))
		assert.Zero(t, RetryAfter(nil, testNow))
	})
}

func TestAuthError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		err := &AuthError{Scheme: "oauth2", Op: "refresh", Message: "token endpoint rejected refresh", Cause: errors.New("invalid_grant")}
		assert.Equal(t, "authentication error (oauth2 refresh): token endpoint rejected refresh: invalid_grant", err.Error())
	})

	t.Run("Expired", func(t *testing.T) {
		err := &AuthError{Scheme: "oauth2", Expired: true}
		assert.Equal(t, "token expired (oauth2)", err.Error())
		assert.True(t, errors.Is(err, ErrTokenExpired))
		assert.True(t, errors.Is(err, ErrAuth))
	})

	t.Run("not expired does not match ErrTokenExpired", func(t *testing.T) {
		err := &AuthError{Scheme: "jwt", Op: "sign"}
		assert.False(t, errors.Is(err, ErrTokenExpired))
	})

	t.Run("Unwrap returns cause", func(t *testing.T) {
		cause := errors.New("underlying")
		err := &AuthError{Cause: cause}
		assert.Same(t, cause, err.Unwrap())
	})
}

func TestDecodeError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &DecodeError{URL: "https://x/y?a=b", ContentType: "application/json", Target: "*client.User", Cause: cause}

	assert.Equal(t, "decode error for https://x/y into *client.User (content-type application/json): unexpected end of JSON input", err.Error())
	assert.True(t, errors.Is(err, ErrDecode))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "decode error", (&DecodeError{}).Error())
}

func TestPaginationError(t *testing.T) {
	err := &PaginationError{URL: "https://x/items?page=3", Page: 3, Message: "continuation link repeats"}
	assert.Equal(t, "pagination error at page 3 (https://x/items): continuation link repeats", err.Error())
	assert.True(t, errors.Is(err, ErrPagination))
}

func TestParseError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := &ParseError{Path: "/path/to/file.yaml", Line: 42, Message: "invalid syntax", Cause: cause}
		assert.Equal(t, "parse error in /path/to/file.yaml at line 42: invalid syntax: underlying error", err.Error())
	})

	t.Run("Error message with minimal fields", func(t *testing.T) {
		assert.Equal(t, "parse error", (&ParseError{}).Error())
	})

	t.Run("Is", func(t *testing.T) {
		assert.True(t, errors.Is(&ParseError{}, ErrParse))
		assert.False(t, errors.Is(&ParseError{}, ErrConfig))
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Operation: "getRepo", Parameter: "owner", Message: "required parameter missing"}
	assert.Equal(t, "validation error in getRepo for parameter owner: required parameter missing", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestConfigError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("bad value")
		err := &ConfigError{Option: "base_url", Value: "::", Message: "must be absolute", Cause: cause}
		assert.Equal(t, "configuration error for base_url (value: ::): must be absolute: bad value", err.Error())
	})

	t.Run("Is and Unwrap", func(t *testing.T) {
		cause := errors.New("underlying")
		err := &ConfigError{Cause: cause}
		assert.True(t, errors.Is(err, ErrConfig))
		assert.Same(t, cause, err.Unwrap())
	})
}
