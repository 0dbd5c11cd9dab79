package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/erraggy/apiclient/client"
	"github.com/erraggy/apiclient/internal/httputil"
	"github.com/erraggy/apiclient/transport"
)

// returnedHeaders are the response headers included in call results.
var returnedHeaders = []string{
	httputil.HeaderContentType,
	httputil.HeaderETag,
	httputil.HeaderLink,
	httputil.HeaderRequestID,
	transport.HeaderRateLimitLimit,
	transport.HeaderRateLimitRemaining,
	transport.HeaderRateLimitReset,
}

// callOutput is the result of call_operation and request.
type callOutput struct {
	Status  int               `json:"status"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// Body is the decoded JSON body, or the body as text.
	Body      any  `json:"body,omitempty"`
	Truncated bool `json:"truncated,omitempty"`
	Pages     int  `json:"pages,omitempty"`
}

type requestInput struct {
	Method  string            `json:"method,omitempty"  jsonschema:"HTTP method (default GET)"`
	Path    string            `json:"path"              jsonschema:"Path relative to the API base URL\\, optionally with a query string"`
	Query   map[string]string `json:"query,omitempty"   jsonschema:"Query parameters"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"Extra request headers"`
	Body    any               `json:"body,omitempty"    jsonschema:"JSON request body"`
}

func (s *Server) handleRequest(ctx context.Context, _ *mcp.CallToolRequest, input requestInput) (*mcp.CallToolResult, callOutput, error) {
	if input.Path == "" {
		return errResult(errors.New("path is required")), callOutput{}, nil
	}
	if strings.Contains(input.Path, "://") {
		return errResult(errors.New("path must be relative to the API base URL")), callOutput{}, nil
	}
	method := strings.ToUpper(input.Method)
	if method == "" {
		method = http.MethodGet
	}
	if err := checkMethod(method); err != nil {
		return errResult(err), callOutput{}, nil
	}

	req := &client.Request{Method: method, Path: input.Path, Body: input.Body}
	if len(input.Query) > 0 {
		req.Query = url.Values{}
		for k, v := range input.Query {
			req.Query.Set(k, v)
		}
	}
	if len(input.Headers) > 0 {
		req.Header = http.Header{}
		for k, v := range input.Headers {
			if strings.EqualFold(k, httputil.HeaderAuthorization) {
				return errResult(errors.New("the Authorization header is set from the configured credential")), callOutput{}, nil
			}
			req.Header.Set(k, v)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
	defer cancel()
	return s.send(ctx, req)
}

// checkMethod refuses methods with side effects unless writes are allowed.
func checkMethod(method string) error {
	if cfg.AllowWrites {
		return nil
	}
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	return fmt.Errorf("%s requests are disabled; set APICLIENT_MCP_ALLOW_WRITES=true to enable them", strings.ToUpper(method))
}

func (s *Server) send(ctx context.Context, req *client.Request) (*mcp.CallToolResult, callOutput, error) {
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.logger.Debug("mcp call failed", "path", req.Path, "error", err)
		return errResult(err), callOutput{}, nil
	}
	output := callOutput{
		Status:  resp.StatusCode,
		URL:     httputil.RedactURL(resp.URL),
		Headers: pickHeaders(resp.Header),
	}
	output.Body, output.Truncated = renderBody(resp.Header.Get(httputil.HeaderContentType), resp.Body, cfg.MaxBodySize)
	return nil, output, nil
}

func pickHeaders(h http.Header) map[string]string {
	var out map[string]string
	for _, name := range returnedHeaders {
		v := h.Get(name)
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = v
	}
	return out
}

// renderBody decodes JSON bodies and returns others as text. Bodies over
// limit bytes are returned as truncated text.
func renderBody(contentType string, body []byte, limit int) (any, bool) {
	if len(body) == 0 {
		return nil, false
	}
	if len(body) > limit {
		return string(body[:limit]), true
	}
	if httputil.IsJSONMediaType(contentType) {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v, false
		}
	}
	return string(body), false
}

type tokenStatusInput struct{}

// Times are rendered as RFC 3339 strings.
type authInfo struct {
	Kind          string `json:"kind"`
	Authenticated bool   `json:"authenticated"`
	Expiry        string `json:"expiry,omitempty"`
	AutoRefresh   bool   `json:"auto_refresh"`
	Refreshable   bool   `json:"refreshable"`
}

type rateLimitInfo struct {
	Known     bool   `json:"known"`
	Limit     int    `json:"limit,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
	Reset     string `json:"reset,omitempty"`
}

type tokenStatusOutput struct {
	BaseURL   string        `json:"base_url"`
	Auth      authInfo      `json:"auth"`
	RateLimit rateLimitInfo `json:"rate_limit"`
}

func (s *Server) handleTokenStatus(_ context.Context, _ *mcp.CallToolRequest, _ tokenStatusInput) (*mcp.CallToolResult, tokenStatusOutput, error) {
	st := s.client.AuthStatus()
	rl := s.client.RateLimit()
	return nil, tokenStatusOutput{
		BaseURL: s.client.BaseURL(),
		Auth: authInfo{
			Kind:          string(st.Kind),
			Authenticated: st.Authenticated,
			Expiry:        formatTime(st.Expiry),
			AutoRefresh:   st.AutoRefresh,
			Refreshable:   st.Refreshable,
		},
		RateLimit: rateLimitInfo{
			Known:     rl.Known,
			Limit:     rl.Limit,
			Remaining: rl.Remaining,
			Reset:     formatTime(rl.Reset),
		},
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
