// Package apiclient provides a runtime for REST API clients described by OpenAPI documents.
//
// Generated or hand-written API wrappers all need the same plumbing: authenticate every
// request, retry transient failures, walk paginated collections and keep OAuth2 tokens
// fresh. apiclient provides that plumbing once, so a per-service wrapper reduces to
// building a URL and calling a verb.
//
// # Overview
//
// The module consists of these packages:
//
//   - client: the Client (verbs, request/response handling, Link and cursor pagination)
//   - auth: credentials (API key, basic, bearer, OAuth2, JWT, GitHub App installation
//     tokens), the lazily refreshed OAuth2 TokenManager and token stores
//   - transport: http.RoundTripper middleware (retry, tracing, rate limiting, ETag cache,
//     logging, request IDs)
//   - pagination: RFC 8288 Link header parsing and a generic page walker
//   - endpoint: an OpenAPI operation catalog that turns an operationId and arguments into
//     a client request at runtime
//   - apierrors: structured error types for use with errors.Is and errors.As
//
// # Quick Start
//
// Call an API with a static bearer token:
//
//	c, err := client.New("https://api.example.com",
//	    client.WithCredentials(auth.Credentials{Kind: auth.KindBearer, Bearer: os.Getenv("TOKEN")}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	var user User
//	if err := c.Get(ctx, "/user", &user); err != nil {
//		log.Fatal(err)
//	}
//
// Walk every page of a collection that paginates with Link headers:
//
//	issues, err := client.GetAllPages[Issue](ctx, c, "/repos/o/r/issues", nil)
//
// Use an OAuth2 client that refreshes its access token on demand:
//
//	c, err := client.New("https://api.example.com",
//	    client.WithCredentials(auth.Credentials{
//	        Kind: auth.KindOAuth2,
//	        OAuth2: &auth.OAuth2Credentials{
//	            ClientID:     id,
//	            ClientSecret: secret,
//	            TokenURL:     "https://auth.example.com/oauth/token",
//	            RefreshToken: refresh,
//	        },
//	    }),
//	    client.WithTokenStore(auth.NewKeyringStore("example-api", "default")),
//	)
package apiclient
