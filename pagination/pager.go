package pagination

import (
	"context"
	"iter"

	"github.com/erraggy/apiclient/apierrors"
)

// Page is one page of a collection. Next is the continuation (a URL or a
// cursor token) for the following page, or "" on the last page. Self is
// the continuation of the page itself when the fetcher knows it, such as
// the starting URL of a Link-header walk, so that a link back to the
// first page is recognised as a loop.
type Page[T any] struct {
	Items []T
	Next  string
	Self  string
}

// Fetcher fetches the page identified by continuation. The first page is
// requested with an empty continuation.
type Fetcher[T any] func(ctx context.Context, continuation string) (Page[T], error)

// Option configures a Pager.
type Option func(*settings)

type settings struct {
	maxPages int
}

// WithMaxPages stops the walk after n pages. Zero or negative means no
// limit. Truncated reports whether the cap cut the walk short.
func WithMaxPages(n int) Option {
	return func(s *settings) { s.maxPages = n }
}

// Pager lazily walks the pages served by a Fetcher.
//
// The pager is not safe for concurrent use.
type Pager[T any] struct {
	fetch    Fetcher[T]
	settings settings

	next      string
	done      bool
	truncated bool
	pages     int
	seen      map[string]struct{}
}

// New returns a Pager positioned before the first page.
func New[T any](fetch Fetcher[T], opts ...Option) *Pager[T] {
	p := &Pager[T]{fetch: fetch, seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(&p.settings)
	}
	return p
}

// Done reports whether the last page has been consumed.
func (p *Pager[T]) Done() bool { return p.done }

// Pages returns how many pages were fetched.
func (p *Pager[T]) Pages() int { return p.pages }

// Truncated reports whether WithMaxPages stopped the walk before the last page.
func (p *Pager[T]) Truncated() bool { return p.truncated }

// Continuation returns the continuation of the next page, "" before the
// first fetch and after the last one.
func (p *Pager[T]) Continuation() string { return p.next }

// Next fetches the next page and returns its items. It returns nil, nil
// once all pages have been consumed. A page may legitimately be empty
// while more pages follow; use Done to tell the cases apart.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := p.fetch(ctx, p.next)
	if err != nil {
		return nil, err
	}
	p.pages++

	self := p.next
	if page.Self != "" {
		self = page.Self
	}
	if self != "" {
		p.seen[self] = struct{}{}
	}
	if page.Next != "" {
		if page.Next == self {
			return page.Items, p.stop(page.Next, "server returned the same continuation twice")
		}
		if _, dup := p.seen[page.Next]; dup {
			return page.Items, p.stop(page.Next, "continuation loops back to an earlier page")
		}
		p.seen[page.Next] = struct{}{}
	}
	p.next = page.Next

	if p.next == "" {
		p.done = true
	} else if p.settings.maxPages > 0 && p.pages >= p.settings.maxPages {
		p.done = true
		p.truncated = true
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page.Items, nil
}

func (p *Pager[T]) stop(continuation, msg string) error {
	p.done = true
	return &apierrors.PaginationError{URL: continuation, Page: p.pages + 1, Message: msg}
}

// Collect fetches all remaining pages and returns their items
// concatenated. On error the items gathered so far are returned with it.
func (p *Pager[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for !p.done {
		items, err := p.Next(ctx)
		all = append(all, items...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// All returns an iterator over the remaining items. A fetch error is
// yielded once with the zero item, after which iteration ends.
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for !p.done {
			items, err := p.Next(ctx)
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
		}
	}
}

// PagesSeq returns an iterator over the remaining pages.
func (p *Pager[T]) PagesSeq(ctx context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for !p.done {
			items, err := p.Next(ctx)
			if err != nil {
				yield(items, err)
				return
			}
			if !yield(items, nil) {
				return
			}
		}
	}
}
