// Package auth attaches credentials to outgoing API requests.
//
// Credentials is a tagged union over the supported schemes; NewAuthorizer
// validates it and returns an Authorizer:
//
//   - API key in a header (optionally prefixed, e.g. "Token ") or query parameter
//   - HTTP basic with a client id and secret
//   - static bearer token
//   - OAuth2 via TokenManager, which refreshes lazily
//   - self-signed JWT (HS256 shared secret or RS256 key)
//   - GitHub App installation tokens, rotated five minutes before expiry
//
// # OAuth2 tokens
//
// TokenManager guards its token with a read-write lock. Token returns the
// held token under the read lock while it is valid; otherwise it takes the
// write lock, re-checks, and refreshes with the refresh_token grant (or the
// client_credentials grant when there is no refresh token). With
// auto-refresh disabled an expired token fails with an error matching
// apierrors.ErrTokenExpired.
//
//	tm, err := auth.NewTokenManager(auth.OAuth2Credentials{
//	    ClientID:     id,
//	    ClientSecret: secret,
//	    TokenURL:     "https://auth.example.com/oauth/token",
//	}, auth.WithTokenStore(auth.NewFileStore(path)))
//
// Tokens may be persisted with a TokenStore: MemoryStore, FileStore (YAML,
// mode 0600) or KeyringStore (the operating system keyring).
//
// # Credential sources
//
// CredentialsFromEnv builds Credentials from PREFIX_* environment variables.
// CredentialProvider implementations (memory, environment, chains of
// providers) feed CredentialsFromProvider.
package auth
