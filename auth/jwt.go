package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/clock"
)

const (
	// DefaultJWTTTL is the lifetime of self-signed JWTs.
	DefaultJWTTTL = time.Hour

	// jwtReuseMargin is how long before expiry a cached JWT is re-signed.
	jwtReuseMargin = 60 * time.Second
)

// JWTAuthorizer signs a JWT (HS256 or RS256) and reuses it until shortly
// before it expires.
type JWTAuthorizer struct {
	creds  JWTCredentials
	method jwt.SigningMethod
	key    any
	clock  clock.Clock

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newJWTAuthorizer(creds JWTCredentials, cfg *config) (*JWTAuthorizer, error) {
	a := &JWTAuthorizer{creds: creds, clock: cfg.clock}
	if a.creds.TTL == 0 {
		a.creds.TTL = DefaultJWTTTL
	}

	switch creds.algorithm() {
	case "RS256":
		key, err := parseRSAKey(creds.PrivateKeyPEM)
		if err != nil {
			return nil, err
		}
		a.method, a.key = jwt.SigningMethodRS256, key
	default:
		a.method, a.key = jwt.SigningMethodHS256, []byte(creds.Secret)
	}
	return a, nil
}

// Token returns the cached JWT, signing a new one when the cached token is
// within a minute of expiry.
func (a *JWTAuthorizer) Token(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if a.token != "" && now.Before(a.expiresAt.Add(-jwtReuseMargin)) {
		return a.token, nil
	}

	exp := now.Add(a.creds.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    a.creds.Issuer,
		Subject:   a.creds.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	if a.creds.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.creds.Audience}
	}
	t := jwt.NewWithClaims(a.method, claims)
	if a.creds.KeyID != "" {
		t.Header["kid"] = a.creds.KeyID
	}
	signed, err := t.SignedString(a.key)
	if err != nil {
		return "", &apierrors.AuthError{Scheme: string(KindJWT), Op: "sign", Message: "signing token", Cause: err}
	}

	a.token, a.expiresAt = signed, exp
	return signed, nil
}

// Authorize sets a bearer JWT.
func (a *JWTAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := a.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// Refresh discards the cached JWT so the next request signs a new one.
func (a *JWTAuthorizer) Refresh(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	return nil
}

// Status implements StatusReporter.
func (a *JWTAuthorizer) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{Kind: KindJWT, Authenticated: true, Expiry: a.expiresAt, AutoRefresh: true, Refreshable: true}
}

// parseRSAKey accepts PKCS#1 and PKCS#8 PEM encoded RSA keys.
func parseRSAKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, configError("private_key", "", "parsing RSA private key", err)
	}
	return key, nil
}
