// Package apierrors provides structured error types for apiclient.
//
// Import path: github.com/erraggy/apiclient/apierrors
//
// This package enables programmatic error handling via [errors.Is] and [errors.As],
// allowing callers to distinguish an API's 404 from an expired token or a body that
// did not decode.
//
// # Error Types
//
//   - [HTTPError]: non-2xx responses, with status, headers, body and parsed message
//   - [AuthError]: credential refresh, exchange or signing failures
//   - [DecodeError]: response bodies that could not be decoded
//   - [PaginationError]: page walks that could not continue (loops, foreign hosts)
//   - [ParseError]: API description documents that could not be parsed
//   - [ValidationError]: operation arguments that do not match the parameters
//   - [ConfigError]: invalid configuration or input options
//
// # Sentinel Errors
//
//   - [ErrHTTP]: matches any [HTTPError]
//   - [ErrUnauthorized], [ErrForbidden], [ErrNotFound]: match [HTTPError] by status
//   - [ErrRateLimited]: matches 429s and quota-exhausted 403s
//   - [ErrAuth]: matches any [AuthError]
//   - [ErrTokenExpired]: matches [AuthError] with Expired=true
//   - [ErrDecode], [ErrPagination], [ErrParse], [ErrValidation], [ErrConfig]
//
// # Usage Examples
//
//	err := c.Get(ctx, "/repos/o/r", &repo)
//	if errors.Is(err, apierrors.ErrNotFound) {
//	    // the repository does not exist
//	}
//
//	var httpErr *apierrors.HTTPError
//	if errors.As(err, &httpErr) && errors.Is(err, apierrors.ErrRateLimited) {
//	    time.Sleep(httpErr.RetryAfter)
//	}
package apierrors
