package transport

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of spans created by Tracing.
const TracerName = "github.com/erraggy/apiclient/transport"

// Span attribute keys, following the OpenTelemetry HTTP conventions.
const (
	AttrHTTPMethod     = attribute.Key("http.request.method")
	AttrURLFull        = attribute.Key("url.full")
	AttrServerAddress  = attribute.Key("server.address")
	AttrHTTPStatusCode = attribute.Key("http.response.status_code")
)

// Tracing returns middleware that wraps each request in a client span named
// "HTTP <METHOD>" and injects the trace context into the request headers
// using the global propagator. A nil provider uses the global one.
func Tracing(tp trace.TracerProvider) Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(TracerName)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, span := tracer.Start(req.Context(), "HTTP "+req.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					AttrHTTPMethod.String(req.Method),
					AttrURLFull.String(urlWithoutQuery(req)),
					AttrServerAddress.String(req.URL.Hostname()),
				),
			)
			defer span.End()

			req = req.Clone(ctx)
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

			resp, err := next.RoundTrip(req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			span.SetAttributes(AttrHTTPStatusCode.Int(resp.StatusCode))
			if resp.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(resp.StatusCode))
			}
			return resp, nil
		})
	}
}

func urlWithoutQuery(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
