// Package pagination walks paginated REST collections.
//
// Two continuation styles are supported. Link-header pagination (RFC 8288)
// follows the rel="next" URL of each response:
//
//	Link: <https://api.example.com/pets?page=2>; rel="next", <...?page=5>; rel="last"
//
// Cursor pagination reads an opaque token from each decoded page and sends
// it back with the following request. Both are expressed as a Fetcher, and
// a Pager drives any Fetcher lazily:
//
//	p := pagination.New(pagination.Cursor(fetch, extract))
//	for pet, err := range p.All(ctx) {
//		...
//	}
//
// A Pager stops with an error wrapping apierrors.ErrPagination when a
// server hands back a continuation it already returned, so a misbehaving
// API cannot trap a walk in a loop.
package pagination
