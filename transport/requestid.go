package transport

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/erraggy/apiclient/internal/httputil"
)

// RequestID returns middleware that sets X-Request-Id to a random UUID when
// the request does not carry one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(httputil.HeaderRequestID) == "" {
				req = req.Clone(req.Context())
				req.Header.Set(httputil.HeaderRequestID, uuid.NewString())
			}
			return next.RoundTrip(req)
		})
	}
}
