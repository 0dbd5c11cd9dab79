package transport

import (
	"net/http"
	"time"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/internal/httputil"
)

// Logging returns middleware that logs each request at Debug and transport
// errors at Warn. Query strings are redacted and headers are never logged.
func Logging(logger apiclient.Logger) Middleware {
	logger = apiclient.LoggerOrNop(logger)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			attrs := []any{
				"method", req.Method,
				"url", httputil.RedactURL(req.URL.String()),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("http request failed", append(attrs, "error", err)...)
				return nil, err
			}
			attrs = append(attrs, "status", resp.StatusCode)
			if id := req.Header.Get(httputil.HeaderRequestID); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			logger.Debug("http request", attrs...)
			return resp, nil
		})
	}
}
