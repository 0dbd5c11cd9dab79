package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/pagination"
)

// Pages walks a Link-header paginated endpoint starting at req. Each page
// is decoded as a JSON array of T. Next links pointing at another host are
// refused with an *apierrors.PaginationError so credentials never leave
// the API host.
func Pages[T any](c *Client, req *Request, opts ...pagination.Option) *pagination.Pager[T] {
	first, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return pagination.New(func(context.Context, string) (pagination.Page[T], error) {
			return pagination.Page[T]{}, err
		}, opts...)
	}

	page := 0
	fetch := func(ctx context.Context, link string) ([]T, http.Header, error) {
		page++
		target, err := url.Parse(link)
		if err != nil {
			return nil, nil, &apierrors.PaginationError{URL: link, Page: page, Message: "invalid next link"}
		}
		if !c.sameHost(target) {
			return nil, nil, &apierrors.PaginationError{URL: link, Page: page, Message: "next link points at another host " + target.Host}
		}
		resp, err := c.Do(ctx, &Request{
			Method: req.Method,
			Path:   link,
			Header: req.Header,
			Auth:   req.Auth,
		})
		if err != nil {
			return nil, nil, err
		}
		var items []T
		if err := resp.Decode(&items); err != nil {
			return nil, nil, err
		}
		return items, resp.Header, nil
	}
	return pagination.New(pagination.FollowLinks(first.String(), fetch), opts...)
}

// GetAllPages fetches every page of a Link-header paginated GET endpoint
// and returns the items concatenated.
func GetAllPages[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	return Pages[T](c, &Request{Path: path, Query: query}).Collect(ctx)
}

// CursorPages walks an endpoint that embeds its continuation token in the
// response body. Each response is decoded into R; extract returns the
// page's items and the next token, empty when done. The token is sent in
// the cursorParam query parameter.
func CursorPages[T, R any](c *Client, req *Request, cursorParam string, extract func(R) ([]T, string), opts ...pagination.Option) *pagination.Pager[T] {
	fetch := func(ctx context.Context, cursor string) (R, error) {
		var out R
		query := url.Values{}
		for k, vs := range req.Query {
			query[k] = append([]string(nil), vs...)
		}
		if cursor != "" {
			query.Set(cursorParam, cursor)
		}
		r := *req
		r.Query = query
		resp, err := c.Do(ctx, &r)
		if err != nil {
			return out, err
		}
		err = resp.Decode(&out)
		return out, err
	}
	return pagination.New(pagination.Cursor(fetch, extract), opts...)
}
