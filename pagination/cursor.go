package pagination

import (
	"context"
	"net/http"
	"net/url"
)

// Cursor adapts a cursor-paginated endpoint. fetch requests the page for
// cursor ("" for the first page) and decodes it into R; extract pulls the
// items and the next cursor out of the decoded page. An empty next cursor
// ends the walk.
func Cursor[T, R any](fetch func(ctx context.Context, cursor string) (R, error), extract func(R) (items []T, next string)) Fetcher[T] {
	return func(ctx context.Context, cursor string) (Page[T], error) {
		resp, err := fetch(ctx, cursor)
		if err != nil {
			return Page[T]{}, err
		}
		items, next := extract(resp)
		return Page[T]{Items: items, Next: next}, nil
	}
}

// LinkPageFunc fetches the page at url and returns its items and the
// response headers.
type LinkPageFunc[T any] func(ctx context.Context, url string) ([]T, http.Header, error)

// FollowLinks adapts a Link-header paginated endpoint starting at first.
// Relative next links are resolved against the URL of the page that
// carried them.
func FollowLinks[T any](first string, fetch LinkPageFunc[T]) Fetcher[T] {
	return func(ctx context.Context, continuation string) (Page[T], error) {
		current := continuation
		if current == "" {
			current = first
		}
		items, header, err := fetch(ctx, current)
		if err != nil {
			return Page[T]{}, err
		}
		next := ParseLinkHeader(header.Values("Link")...).Next()
		return Page[T]{Items: items, Next: resolve(current, next), Self: current}, nil
	}
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
