package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/httputil"
	"github.com/erraggy/apiclient/pagination"
)

// AuthMode selects how a request is authenticated.
type AuthMode int

const (
	// AuthDefault uses the client's authorizer.
	AuthDefault AuthMode = iota
	// AuthNone sends the request without credentials.
	AuthNone
	// AuthJWT authenticates as the application with a signed JWT (GitHub
	// /app endpoints) when the authorizer supports it, and falls back to
	// the default authorization otherwise.
	AuthJWT
)

// String returns the mode name.
func (m AuthMode) String() string {
	switch m {
	case AuthNone:
		return "none"
	case AuthJWT:
		return "jwt"
	default:
		return "default"
	}
}

// Request describes an API call.
type Request struct {
	// Method is the HTTP method; empty means GET.
	Method string
	// Path is resolved against the base URL. Absolute URLs are used as is.
	// It may carry a query string, to which Query is added.
	Path   string
	Query  url.Values
	Header http.Header
	// Body is encoded by type: []byte, string and io.Reader are sent raw,
	// url.Values as a form, anything else as JSON.
	Body any
	// ContentType overrides the content type derived from Body.
	ContentType string
	Auth        AuthMode
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Response is a completed API call with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the URL that produced the response.
	URL string
}

// Links parses the response's Link headers.
func (r *Response) Links() pagination.Links {
	return pagination.ParseLinkHeader(r.Header.Values(httputil.HeaderLink)...)
}

// Decode decodes the body into out. See Client.Do for the rules.
func (r *Response) Decode(out any) error {
	return decode(r, out)
}

// encodedBody is a request body ready to send. replay reports whether the
// body can be sent a second time.
type encodedBody struct {
	reader      io.Reader
	contentType string
	replay      bool
}

func encodeBody(body any, contentType string) (encodedBody, error) {
	var eb encodedBody
	switch b := body.(type) {
	case nil:
		return encodedBody{replay: true}, nil
	case []byte:
		eb = encodedBody{reader: bytes.NewReader(b), contentType: "application/octet-stream", replay: true}
	case string:
		eb = encodedBody{reader: strings.NewReader(b), contentType: "text/plain; charset=utf-8", replay: true}
	case url.Values:
		eb = encodedBody{reader: strings.NewReader(b.Encode()), contentType: httputil.MediaTypeForm, replay: true}
	case io.Reader:
		_, seekable := b.(io.Seeker)
		eb = encodedBody{reader: b, contentType: "application/octet-stream", replay: seekable}
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return encodedBody{}, fmt.Errorf("client: encoding request body: %w", err)
		}
		eb = encodedBody{reader: bytes.NewReader(data), contentType: httputil.MediaTypeJSON, replay: true}
	}
	if contentType != "" {
		eb.contentType = contentType
	}
	return eb, nil
}

// resolve turns a request path into the URL that is sent.
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	var u *url.URL
	var err error
	if strings.Contains(path, "://") {
		u, err = url.Parse(path)
	} else {
		u, err = url.Parse(c.baseURL.String() + "/" + strings.TrimLeft(path, "/"))
	}
	if err != nil {
		return nil, &apierrors.ConfigError{Option: "path", Value: path, Message: "client: invalid request path", Cause: err}
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = append(q[k], vs...)
		}
		u.RawQuery = q.Encode()
	}
	return c.rewriteHost(u), nil
}

// rewriteHost applies the host override to URLs on the base host. It
// returns a copy.
func (c *Client) rewriteHost(u *url.URL) *url.URL {
	out := *u
	if c.hostOverride != nil && strings.EqualFold(u.Host, c.baseURL.Host) {
		out.Host = c.hostOverride.Host
		if c.hostOverride.Scheme != "" {
			out.Scheme = c.hostOverride.Scheme
		}
	}
	return &out
}

// sameHost reports whether u targets the client's host, before or after
// the host override.
func (c *Client) sameHost(u *url.URL) bool {
	if strings.EqualFold(u.Host, c.baseURL.Host) {
		return true
	}
	return c.hostOverride != nil && strings.EqualFold(u.Host, c.hostOverride.Host)
}

// newHTTPRequest builds the outgoing request. It is called again for the
// replay after a credential refresh, so body must be replayable then.
func (c *Client) newHTTPRequest(ctx context.Context, req *Request, target *url.URL, body encodedBody) (*http.Request, error) {
	if body.replay {
		if s, ok := body.reader.(io.Seeker); ok {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("client: rewinding request body: %w", err)
			}
		}
	}
	hreq, err := http.NewRequestWithContext(ctx, req.method(), target.String(), body.reader)
	if err != nil {
		return nil, fmt.Errorf("client: creating request: %w", err)
	}

	hreq.Header.Set(httputil.HeaderUserAgent, c.userAgent)
	hreq.Header.Set(httputil.HeaderAccept, c.mediaType)
	for k, vs := range c.headers {
		hreq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		hreq.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if body.reader != nil && hreq.Header.Get(httputil.HeaderContentType) == "" {
		hreq.Header.Set(httputil.HeaderContentType, body.contentType)
	}

	if err := c.authorize(ctx, req.Auth, hreq); err != nil {
		return nil, err
	}
	for _, edit := range c.editors {
		if err := edit(ctx, hreq); err != nil {
			return nil, fmt.Errorf("client: request editor: %w", err)
		}
	}
	return hreq, nil
}
