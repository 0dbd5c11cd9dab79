package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/auth"
	"github.com/erraggy/apiclient/internal/clock"
	"github.com/erraggy/apiclient/internal/httputil"
	"github.com/erraggy/apiclient/transport"
)

// RequestEditorFn can modify a request after it has been authorized and
// before it is sent.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// Option configures a Client.
type Option func(*settings) error

type settings struct {
	httpClient     *http.Client
	credentials    *auth.Credentials
	authorizer     auth.Authorizer
	authOptions    []auth.Option
	tokenStore     auth.TokenStore
	userAgent      string
	hostOverride   *url.URL
	mediaType      string
	headers        http.Header
	editors        []RequestEditorFn
	retry          transport.RetryConfig
	retryDisabled  bool
	tracerProvider trace.TracerProvider
	limiter        *rate.Limiter
	etagCache      bool
	requestID      bool
	logger         apiclient.Logger
	clock          clock.Clock
}

// WithHTTPClient sets the HTTP client. Its Transport becomes the innermost
// layer of the middleware chain; the client itself is not modified.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) error {
		if client == nil {
			return &apierrors.ConfigError{Option: "http client", Message: "client: http client is nil"}
		}
		s.httpClient = client
		return nil
	}
}

// WithCredentials authenticates requests with creds.
func WithCredentials(creds auth.Credentials) Option {
	return func(s *settings) error {
		s.credentials = &creds
		return nil
	}
}

// WithAuthorizer authenticates requests with a, replacing WithCredentials.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(s *settings) error {
		s.authorizer = a
		return nil
	}
}

// WithAuthOptions passes extra options to auth.NewAuthorizer when the
// authorizer is built from WithCredentials.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(s *settings) error {
		s.authOptions = append(s.authOptions, opts...)
		return nil
	}
}

// WithTokenStore persists OAuth2 tokens obtained by the client.
func WithTokenStore(store auth.TokenStore) Option {
	return func(s *settings) error {
		s.tokenStore = store
		return nil
	}
}

// WithUserAgent sets the User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(s *settings) error {
		s.userAgent = ua
		return nil
	}
}

// WithHostOverride sends every request for the base URL's host to host
// instead. host is either "host[:port]" or a URL whose scheme also
// replaces the base scheme (e.g. "http://127.0.0.1:8080" for a local
// mock). Pagination links on the original host are rewritten too.
func WithHostOverride(host string) Option {
	return func(s *settings) error {
		if host == "" {
			s.hostOverride = nil
			return nil
		}
		raw := host
		if !strings.Contains(raw, "://") {
			raw = "//" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return &apierrors.ConfigError{Option: "host override", Value: host, Message: "client: invalid host", Cause: err}
		}
		s.hostOverride = &url.URL{Scheme: u.Scheme, Host: u.Host}
		return nil
	}
}

// WithMediaType sets the Accept header sent with every request.
func WithMediaType(mediaType string) Option {
	return func(s *settings) error {
		if !httputil.IsValidMediaType(mediaType) {
			return &apierrors.ConfigError{Option: "media type", Value: mediaType, Message: "client: invalid media type"}
		}
		s.mediaType = mediaType
		return nil
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(s *settings) error {
		s.headers.Add(key, value)
		return nil
	}
}

// WithRequestEditor adds a request editor function.
func WithRequestEditor(fn RequestEditorFn) Option {
	return func(s *settings) error {
		s.editors = append(s.editors, fn)
		return nil
	}
}

// WithRetry replaces the default retry policy.
func WithRetry(cfg transport.RetryConfig) Option {
	return func(s *settings) error {
		s.retry = cfg
		s.retryDisabled = false
		return nil
	}
}

// WithoutRetry disables retries.
func WithoutRetry() Option {
	return func(s *settings) error {
		s.retryDisabled = true
		return nil
	}
}

// WithTracerProvider records a client span per request. Without it the
// global OpenTelemetry provider is used, which is a no-op unless the
// application installed one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) error {
		s.tracerProvider = tp
		return nil
	}
}

// WithRateLimit limits the client to limit requests per second with the
// given burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *settings) error {
		if limit <= 0 || burst <= 0 {
			return &apierrors.ConfigError{Option: "rate limit", Value: fmt.Sprintf("%v/%d", limit, burst), Message: "client: limit and burst must be positive"}
		}
		s.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// WithETagCache revalidates repeated GETs with If-None-Match.
func WithETagCache() Option {
	return func(s *settings) error {
		s.etagCache = true
		return nil
	}
}

// WithRequestID sends a random X-Request-Id with every request that does
// not already carry one.
func WithRequestID() Option {
	return func(s *settings) error {
		s.requestID = true
		return nil
	}
}

// WithLogger sets the logger for the client, its transport and its
// authorizer.
func WithLogger(l apiclient.Logger) Option {
	return func(s *settings) error {
		s.logger = l
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(s *settings) error {
		s.clock = c
		return nil
	}
}
