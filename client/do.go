package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/auth"
	"github.com/erraggy/apiclient/internal/httputil"
)

func (c *Client) authorize(ctx context.Context, mode AuthMode, req *http.Request) error {
	switch mode {
	case AuthNone:
		return nil
	case AuthJWT:
		if app, ok := c.authorizer.(auth.AppAuthorizer); ok {
			return app.AuthorizeApp(ctx, req)
		}
	}
	return c.authorizer.Authorize(ctx, req)
}

// RequestRaw sends req and returns the response without inspecting its
// status or reading its body. The caller must close the body. A 401 is
// still answered with one credential refresh and replay.
func (c *Client) RequestRaw(ctx context.Context, req *Request) (*http.Response, error) {
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}
	body, err := encodeBody(req.Body, req.ContentType)
	if err != nil {
		return nil, err
	}

	hreq, err := c.newHTTPRequest(ctx, req, target, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.Auth == AuthNone {
		return resp, nil
	}

	refresher, ok := c.authorizer.(auth.Refresher)
	if !ok || !body.replay {
		return resp, nil
	}
	resp.Body.Close()

	// Another request may have renewed the credential since this one was
	// authorized; only refresh when the retry would carry the same one.
	retry, err := c.newHTTPRequest(ctx, req, target, body)
	if err != nil || retry.Header.Get(httputil.HeaderAuthorization) == hreq.Header.Get(httputil.HeaderAuthorization) {
		c.logger.Debug("credential rejected, refreshing", "method", hreq.Method, "url", httputil.RedactURL(target.String()))
		if rr, ok := refresher.(auth.RejectionRefresher); ok {
			err = rr.RefreshRejected(ctx, hreq)
		} else {
			err = refresher.Refresh(ctx)
		}
		if err != nil {
			return nil, err
		}
		if retry, err = c.newHTTPRequest(ctx, req, target, body); err != nil {
			return nil, err
		}
	}
	return c.httpClient.Do(retry)
}

// Do sends req and reads the response. A non-2xx status is returned as an
// *apierrors.HTTPError.
//
// Response bodies are decoded by Response.Decode, and by the verb helpers:
// nothing is decoded for 204 or an empty body; *[]byte and *string receive
// the raw body; anything else is decoded as JSON. Decoding failures are
// returned as *apierrors.DecodeError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.RequestRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := httputil.ReadBody(resp.Body, httputil.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("client: reading response body: %w", err)
	}
	method, url := req.method(), req.Path
	if resp.Request != nil {
		method, url = resp.Request.Method, resp.Request.URL.String()
	}
	if !httputil.IsSuccess(resp.StatusCode) {
		return nil, apierrors.NewHTTPError(method, url, resp.StatusCode, resp.Header, data, c.clock.Now())
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data, URL: url}, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, &Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Get sends a GET request and decodes the response into out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post sends body with a POST request and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// Put sends body with a PUT request and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, body, out)
}

// Patch sends body with a PATCH request and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPatch, path, body, out)
}

// Delete sends a DELETE request and decodes the response into out, which
// may be nil.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, nil, out)
}

func decode(resp *Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil
	}
	switch o := out.(type) {
	case *[]byte:
		*o = resp.Body
		return nil
	case *string:
		*o = string(resp.Body)
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &apierrors.DecodeError{
			URL:         resp.URL,
			ContentType: resp.Header.Get(httputil.HeaderContentType),
			Target:      fmt.Sprintf("%T", out),
			Cause:       err,
		}
	}
	return nil
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return errors.Is(err, apierrors.ErrNotFound) }

// IsRateLimited reports whether err is a rate limit response.
func IsRateLimited(err error) bool { return errors.Is(err, apierrors.ErrRateLimited) }
