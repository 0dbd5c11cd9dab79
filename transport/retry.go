package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/httputil"
)

// Retry defaults.
const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 500 * time.Millisecond
	DefaultRetryWaitMax = 30 * time.Second
)

// RetryConfig configures the retry middleware.
type RetryConfig struct {
	// Max is the number of retries after the first attempt. Zero means
	// DefaultRetryMax; a negative value disables retries.
	Max int
	// WaitMin and WaitMax bound the exponential backoff.
	WaitMin time.Duration
	WaitMax time.Duration
	// RetryNonIdempotent allows POST and PATCH requests to be retried.
	RetryNonIdempotent bool
	// Logger receives retry decisions. Nil disables retry logging.
	Logger apiclient.Logger
}

// DefaultRetryConfig returns three retries with 500ms..30s exponential
// backoff for idempotent methods.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Max:     DefaultRetryMax,
		WaitMin: DefaultRetryWaitMin,
		WaitMax: DefaultRetryWaitMax,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Max == 0 {
		c.Max = DefaultRetryMax
	}
	if c.WaitMin <= 0 {
		c.WaitMin = DefaultRetryWaitMin
	}
	if c.WaitMax <= 0 {
		c.WaitMax = DefaultRetryWaitMax
	}
	if c.WaitMax < c.WaitMin {
		c.WaitMax = c.WaitMin
	}
	return c
}

// Retry returns middleware that retries failed attempts.
func Retry(cfg RetryConfig) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewRetryTransport(next, cfg)
	}
}

// RetryTransport retries connection errors, 429 and 5xx responses (except
// 501) with exponential backoff, honoring Retry-After on 429 and 503. When
// retries are exhausted the last response is returned unchanged so the
// caller can inspect it.
type RetryTransport struct {
	next   http.RoundTripper
	cfg    RetryConfig
	client *retryablehttp.Client
}

// NewRetryTransport wraps next. A nil next means http.DefaultTransport.
func NewRetryTransport(next http.RoundTripper, cfg RetryConfig) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	cfg = cfg.withDefaults()

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: next,
		// Redirects are followed by the outer client.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	rc.RetryMax = max(cfg.Max, 0)
	rc.RetryWaitMin = cfg.WaitMin
	rc.RetryWaitMax = cfg.WaitMax
	rc.CheckRetry = checkRetry
	rc.Backoff = backoff
	rc.ErrorHandler = lastResponse
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = retryablehttp.LeveledLogger(cfg.Logger)
	}
	return &RetryTransport{next: next, cfg: cfg, client: rc}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.cfg.Max < 0 || (!t.cfg.RetryNonIdempotent && !httputil.IsIdempotent(req.Method)) {
		return t.next.RoundTrip(req)
	}

	// retryablehttp rewinds the body onto the request it is given.
	rreq, err := retryablehttp.FromRequest(req.Clone(req.Context()))
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(rreq)
	// Unwrap the *url.Error added by the inner http.Client; the outer client
	// adds its own.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return resp, urlErr.Err
	}
	return resp, err
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// backoff doubles from min on every attempt up to max. A Retry-After (or
// X-RateLimit-Reset) on 429 and 503 responses replaces the computed wait,
// still capped at max.
func backoff(minWait, maxWait time.Duration, attempt int, resp *http.Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if d := apierrors.RetryAfter(resp.Header, time.Now()); d > 0 {
			return min(d, maxWait)
		}
	}
	return retryablehttp.DefaultBackoff(minWait, maxWait, attempt, nil)
}

// lastResponse hands back the final response after retries are exhausted,
// instead of retryablehttp's default of discarding it.
func lastResponse(resp *http.Response, err error, _ int) (*http.Response, error) {
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}
