package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{Max: 3, WaitMin: time.Millisecond, WaitMax: 5 * time.Millisecond}
}

// flakyServer answers with statuses in order, repeating the last one.
func flakyServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32, *[]string) {
	t.Helper()
	var calls atomic.Int32
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		status := statuses[min(n, len(statuses))-1]
		w.WriteHeader(status)
		_, _ = io.WriteString(w, http.StatusText(status))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &bodies
}

func do(t *testing.T, rt http.RoundTripper, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := (&http.Client{Transport: rt}).Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRetry_RecoversFromServerErrors(t *testing.T) {
	srv, calls, _ := flakyServer(t, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK)
	rt := NewRetryTransport(srv.Client().Transport, fastRetry())

	resp := do(t, rt, http.MethodGet, srv.URL, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_ReturnsLastResponseWhenExhausted(t *testing.T) {
	srv, calls, _ := flakyServer(t, http.StatusInternalServerError)
	rt := NewRetryTransport(srv.Client().Transport, fastRetry())

	resp := do(t, rt, http.MethodGet, srv.URL, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Internal Server Error", string(body))
	assert.Equal(t, int32(4), calls.Load(), "first attempt plus three retries")
}

func TestRetry_DoesNotRetry(t *testing.T) {
	tests := []struct {
		name   string
		method string
		status int
	}{
		{"client error", http.MethodGet, http.StatusBadRequest},
		{"not implemented", http.MethodGet, http.StatusNotImplemented},
		{"post", http.MethodPost, http.StatusServiceUnavailable},
		{"patch", http.MethodPatch, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls, _ := flakyServer(t, tt.status)
			rt := NewRetryTransport(srv.Client().Transport, fastRetry())

			resp := do(t, rt, tt.method, srv.URL, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestRetry_NonIdempotentOptIn(t *testing.T) {
	srv, calls, bodies := flakyServer(t, http.StatusServiceUnavailable, http.StatusCreated)
	cfg := fastRetry()
	cfg.RetryNonIdempotent = true
	rt := NewRetryTransport(srv.Client().Transport, cfg)

	resp := do(t, rt, http.MethodPost, srv.URL, `{"name":"rex"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{`{"name":"rex"}`, `{"name":"rex"}`}, *bodies, "body is replayed")
}

func TestRetry_ZeroValueConfigRetries(t *testing.T) {
	srv, calls, _ := flakyServer(t, http.StatusServiceUnavailable)
	rt := NewRetryTransport(srv.Client().Transport, RetryConfig{WaitMin: time.Millisecond, WaitMax: time.Millisecond})

	resp := do(t, rt, http.MethodGet, srv.URL, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(DefaultRetryMax+1), calls.Load(), "zero Max means the default")
}

func TestRetry_Disabled(t *testing.T) {
	srv, calls, _ := flakyServer(t, http.StatusServiceUnavailable)
	rt := NewRetryTransport(srv.Client().Transport, RetryConfig{Max: -1})

	resp := do(t, rt, http.MethodGet, srv.URL, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_ContextCancelStopsRetries(t *testing.T) {
	srv, calls, _ := flakyServer(t, http.StatusServiceUnavailable)
	rt := NewRetryTransport(srv.Client().Transport, RetryConfig{Max: 3, WaitMin: time.Hour, WaitMax: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, time.Second, 0, nil))
	assert.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, time.Second, 2, nil))
	assert.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 10, nil))

	limited := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": {"2"}}}
	assert.Equal(t, 2*time.Second, backoff(100*time.Millisecond, 10*time.Second, 0, limited))
	assert.Equal(t, time.Second, backoff(100*time.Millisecond, time.Second, 0, limited), "capped at max")

	ignored := &http.Response{StatusCode: http.StatusInternalServerError, Header: http.Header{"Retry-After": {"2"}}}
	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, time.Second, 0, ignored))
}

func TestRetryConfig_Defaults(t *testing.T) {
	cfg := RetryConfig{WaitMin: time.Second, WaitMax: time.Millisecond}.withDefaults()
	assert.Equal(t, DefaultRetryMax, cfg.Max)
	assert.Equal(t, time.Second, cfg.WaitMax, "max is raised to min")

	zero := RetryConfig{}.withDefaults()
	assert.Equal(t, DefaultRetryConfig(), zero)

	assert.Equal(t, -1, RetryConfig{Max: -1}.withDefaults().Max, "negative stays disabled")

	def := DefaultRetryConfig()
	assert.Equal(t, 3, def.Max)
	assert.Equal(t, 500*time.Millisecond, def.WaitMin)
	assert.Equal(t, 30*time.Second, def.WaitMax)
	assert.False(t, def.RetryNonIdempotent)
}
