// Package transport provides the http.RoundTripper middleware used by the
// apiclient client: retries with exponential backoff, OpenTelemetry tracing,
// client- and server-side rate limiting, a conditional GET cache, request
// logging and request IDs.
//
// Middleware compose with Chain, outermost first:
//
//	rt := transport.Chain(http.DefaultTransport,
//		transport.RequestID(),
//		transport.Tracing(tp),
//		transport.Logging(logger),
//		transport.Retry(transport.DefaultRetryConfig()),
//	)
//
// Every middleware clones the request before modifying it, as required by
// the http.RoundTripper contract.
package transport
