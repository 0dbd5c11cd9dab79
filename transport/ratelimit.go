package transport

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/erraggy/apiclient/internal/clock"
)

// Rate limit headers announced by servers such as GitHub.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitState is the last limit a server announced.
type RateLimitState struct {
	Limit     int
	Remaining int
	Reset     time.Time
	// Known is false until a response carried the headers.
	Known bool
}

// RateLimitTracker records server-announced rate limits and holds back
// requests while the quota is exhausted.
type RateLimitTracker struct {
	clock clock.Clock

	mu    sync.Mutex
	state RateLimitState
}

// NewRateLimitTracker returns an empty tracker. A nil clock means the
// system clock.
func NewRateLimitTracker(clk clock.Clock) *RateLimitTracker {
	return &RateLimitTracker{clock: clock.OrReal(clk)}
}

// State returns the last observed limit.
func (t *RateLimitTracker) State() RateLimitState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Observe records the rate limit headers of resp, if any.
func (t *RateLimitTracker) Observe(resp *http.Response) {
	remaining, err := strconv.Atoi(resp.Header.Get(HeaderRateLimitRemaining))
	if err != nil {
		return
	}
	state := RateLimitState{Remaining: remaining, Known: true}
	if limit, err := strconv.Atoi(resp.Header.Get(HeaderRateLimitLimit)); err == nil {
		state.Limit = limit
	}
	if reset, err := strconv.ParseInt(resp.Header.Get(HeaderRateLimitReset), 10, 64); err == nil {
		state.Reset = time.Unix(reset, 0)
	}

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// Wait blocks until the announced reset when the remaining quota is zero.
// It returns early with the context's error.
func (t *RateLimitTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()

	if !state.Known || state.Remaining > 0 || state.Reset.IsZero() {
		return nil
	}
	d := state.Reset.Sub(t.clock.Now())
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.clock.After(d):
	}

	t.mu.Lock()
	if t.state.Reset.Equal(state.Reset) {
		t.state.Known = false
	}
	t.mu.Unlock()
	return nil
}

// RateLimit returns middleware that waits on limiter (a client-side token
// bucket) and on tracker (server-announced limits) before each request.
// Either may be nil.
func RateLimit(limiter *rate.Limiter, tracker *RateLimitTracker) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return nil, err
				}
			}
			if tracker != nil {
				if err := tracker.Wait(ctx); err != nil {
					return nil, err
				}
			}
			resp, err := next.RoundTrip(req)
			if err == nil && tracker != nil {
				tracker.Observe(resp)
			}
			return resp, err
		})
	}
}
