package auth

import (
	"context"
	"net/http"

	"github.com/go-openapi/runtime"
	"github.com/go-openapi/strfmt"
)

// SwaggerAuthInfo adapts a to go-swagger generated clients, so they share
// credentials (and token refresh) with this package's client.
func SwaggerAuthInfo(a Authorizer) runtime.ClientAuthInfoWriter {
	return SwaggerAuthInfoContext(context.Background(), a)
}

// SwaggerAuthInfoContext is SwaggerAuthInfo with the context used for
// token refresh.
func SwaggerAuthInfoContext(ctx context.Context, a Authorizer) runtime.ClientAuthInfoWriter {
	return runtime.ClientAuthInfoWriterFunc(func(r runtime.ClientRequest, _ strfmt.Registry) error {
		// Authorizers operate on *http.Request; authorize a scratch request
		// and copy what was set onto the swagger request.
		scratch, err := http.NewRequestWithContext(ctx, r.GetMethod(), "http://swagger.invalid/", nil)
		if err != nil {
			return err
		}
		if err := a.Authorize(ctx, scratch); err != nil {
			return err
		}
		for name, values := range scratch.Header {
			if err := r.SetHeaderParam(name, values...); err != nil {
				return err
			}
		}
		for name, values := range scratch.URL.Query() {
			if err := r.SetQueryParam(name, values...); err != nil {
				return err
			}
		}
		return nil
	})
}
