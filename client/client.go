package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/auth"
	"github.com/erraggy/apiclient/internal/clock"
	"github.com/erraggy/apiclient/internal/httputil"
	"github.com/erraggy/apiclient/transport"
)

// DefaultTimeout bounds a whole request, retries included, when no HTTP
// client is supplied.
const DefaultTimeout = 60 * time.Second

// Client is the API client.
type Client struct {
	baseURL      *url.URL
	hostOverride *url.URL
	httpClient   *http.Client
	authorizer   auth.Authorizer
	userAgent    string
	mediaType    string
	headers      http.Header
	editors      []RequestEditorFn
	rateLimit    *transport.RateLimitTracker
	etagCache    *transport.ETagCache
	logger       apiclient.Logger
	clock        clock.Clock
}

// New creates a client for the API rooted at baseURL, which must be an
// absolute http or https URL. A trailing slash is ignored.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	s := &settings{
		userAgent: apiclient.UserAgent(),
		mediaType: httputil.MediaTypeJSON,
		headers:   make(http.Header),
		retry:     transport.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	c := &Client{
		baseURL:      base,
		hostOverride: s.hostOverride,
		userAgent:    s.userAgent,
		mediaType:    s.mediaType,
		headers:      s.headers,
		editors:      s.editors,
		rateLimit:    transport.NewRateLimitTracker(s.clock),
		logger:       apiclient.LoggerOrNop(s.logger),
		clock:        clock.OrReal(s.clock),
	}

	baseClient := s.httpClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: DefaultTimeout}
	}
	c.httpClient = c.buildHTTPClient(baseClient, s)

	c.authorizer, err = c.buildAuthorizer(baseClient, s)
	if err != nil {
		return nil, err
	}

	if base.Scheme == "http" {
		if st := auth.StatusOf(c.authorizer); st.Kind != auth.KindNone {
			c.logger.Warn("credentials will be sent over plain http", "base_url", base.String(), "auth", st.Kind)
		}
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, &apierrors.ConfigError{Option: "base url", Value: raw, Message: "client: invalid base url", Cause: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &apierrors.ConfigError{Option: "base url", Value: raw, Message: "client: base url must be an absolute http or https url"}
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// buildHTTPClient copies base and wraps its transport, outermost first:
// request id, tracing, logging, rate limit, ETag cache, retry.
func (c *Client) buildHTTPClient(base *http.Client, s *settings) *http.Client {
	var mws []transport.Middleware
	if s.requestID {
		mws = append(mws, transport.RequestID())
	}
	mws = append(mws,
		transport.Tracing(s.tracerProvider),
		transport.Logging(c.logger),
		transport.RateLimit(s.limiter, c.rateLimit),
	)
	if s.etagCache {
		c.etagCache = transport.NewETagCache()
		mws = append(mws, c.etagCache.Middleware())
	}
	if !s.retryDisabled {
		cfg := s.retry
		if cfg.Logger == nil {
			cfg.Logger = c.logger
		}
		mws = append(mws, transport.Retry(cfg))
	}

	hc := *base
	hc.Transport = transport.Chain(base.Transport, mws...)
	return &hc
}

func (c *Client) buildAuthorizer(base *http.Client, s *settings) (auth.Authorizer, error) {
	if s.authorizer != nil {
		return s.authorizer, nil
	}
	if s.credentials == nil {
		return auth.NewAuthorizer(auth.Credentials{Kind: auth.KindNone})
	}
	opts := []auth.Option{
		auth.WithHTTPClient(base),
		auth.WithClock(c.clock),
		auth.WithLogger(c.logger),
		auth.WithBaseURL(c.rewriteHost(c.baseURL).String()),
	}
	if s.tokenStore != nil {
		opts = append(opts, auth.WithTokenStore(s.tokenStore))
	}
	opts = append(opts, s.authOptions...)
	return auth.NewAuthorizer(*s.credentials, opts...)
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Authorizer returns the authorizer attached to requests.
func (c *Client) Authorizer() auth.Authorizer { return c.authorizer }

// HTTPClient returns the HTTP client with the middleware chain installed.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// RateLimit returns the last rate limit announced by the server.
func (c *Client) RateLimit() transport.RateLimitState { return c.rateLimit.State() }

// ETagCache returns the conditional GET cache, or nil when disabled.
func (c *Client) ETagCache() *transport.ETagCache { return c.etagCache }

// AuthStatus describes the client's credential.
func (c *Client) AuthStatus() auth.Status { return auth.StatusOf(c.authorizer) }
