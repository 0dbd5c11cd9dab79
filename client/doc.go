// Package client is the shared REST client runtime: it resolves paths
// against a base URL, encodes bodies, authenticates requests, sends them
// through the transport middleware, maps failures to apierrors types and
// decodes responses.
//
// A per-service wrapper reduces to building a path and calling a verb:
//
//	func (s *PetService) Get(ctx context.Context, id int64) (*Pet, error) {
//		var pet Pet
//		err := s.c.Get(ctx, fmt.Sprintf("/pets/%d", id), &pet)
//		return &pet, err
//	}
//
// # Authentication
//
// Every request is authorized by the client's auth.Authorizer unless
// Request.Auth is AuthNone. AuthJWT authenticates as the GitHub App itself
// for installation credentials. When a request is answered with 401 and
// the authorizer implements auth.Refresher, the credential is refreshed
// and the request is sent once more, provided its body can be replayed.
//
// # Pagination
//
// Pages and GetAllPages follow rel="next" Link headers; CursorPages
// follows a cursor embedded in each decoded page. Continuation links that
// point at a host other than the client's are refused, so credentials are
// never sent to a third party.
package client
