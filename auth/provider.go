package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/naming"
)

// CredentialProvider looks up a named secret. A missing secret is
// reported as "", nil so providers can be chained.
type CredentialProvider interface {
	GetCredential(ctx context.Context, name string) (string, error)
}

// MemoryCredentialProvider serves credentials from memory.
type MemoryCredentialProvider struct {
	mu          sync.RWMutex
	credentials map[string]string
}

// NewMemoryCredentialProvider returns an empty MemoryCredentialProvider.
func NewMemoryCredentialProvider() *MemoryCredentialProvider {
	return &MemoryCredentialProvider{credentials: make(map[string]string)}
}

// Set stores a credential.
func (p *MemoryCredentialProvider) Set(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credentials[name] = value
}

// Delete removes a credential.
func (p *MemoryCredentialProvider) Delete(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.credentials, name)
}

// GetCredential implements CredentialProvider.
func (p *MemoryCredentialProvider) GetCredential(_ context.Context, name string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.credentials[name], nil
}

// EnvCredentialProvider reads credentials from PREFIX_NAME environment
// variables; "client-secret" and "clientSecret" both map to
// PREFIX_CLIENT_SECRET.
type EnvCredentialProvider struct {
	prefix string
}

// NewEnvCredentialProvider returns a provider for the given prefix.
func NewEnvCredentialProvider(prefix string) *EnvCredentialProvider {
	return &EnvCredentialProvider{prefix: prefix}
}

// EnvName returns the variable consulted for name.
func (p *EnvCredentialProvider) EnvName(name string) string {
	return naming.ToEnvName(p.prefix, name)
}

// GetCredential implements CredentialProvider.
func (p *EnvCredentialProvider) GetCredential(_ context.Context, name string) (string, error) {
	return os.Getenv(p.EnvName(name)), nil
}

// CredentialChain consults providers in order; the first non-empty value
// wins. Provider errors are collected and returned only when no provider
// had the credential.
type CredentialChain struct {
	providers []CredentialProvider
}

// NewCredentialChain returns a chain over providers.
func NewCredentialChain(providers ...CredentialProvider) *CredentialChain {
	return &CredentialChain{providers: providers}
}

// GetCredential implements CredentialProvider.
func (c *CredentialChain) GetCredential(ctx context.Context, name string) (string, error) {
	var result *multierror.Error
	for _, p := range c.providers {
		v, err := p.GetCredential(ctx, name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if v != "" {
			return v, nil
		}
	}
	return "", result.ErrorOrNil()
}

// Credential names read by CredentialsFromProvider.
const (
	CredAPIKey         = "api_key"
	CredAPIKeyHeader   = "api_key_header"
	CredAPIKeyPrefix   = "api_key_prefix"
	CredToken          = "token"
	CredClientID       = "client_id"
	CredClientSecret   = "client_secret"
	CredRedirectURI    = "redirect_uri"
	CredRefreshToken   = "refresh_token"
	CredTokenURL       = "token_url"
	CredAuthURL        = "auth_url"
	CredJWTSecret      = "jwt_secret"
	CredAppID          = "app_id"
	CredInstallationID = "installation_id"
	CredPrivateKey     = "private_key"
)

var credentialNames = []string{
	CredAPIKey, CredAPIKeyHeader, CredAPIKeyPrefix, CredToken, CredClientID,
	CredClientSecret, CredRedirectURI, CredRefreshToken, CredTokenURL,
	CredAuthURL, CredJWTSecret, CredAppID, CredInstallationID, CredPrivateKey,
}

// ErrNoCredentials is returned by CredentialsFromProvider when no usable
// combination of credentials is present.
var ErrNoCredentials = errors.New("auth: no credentials found")

// CredentialsFromEnv builds Credentials from <PREFIX>_* environment
// variables. See CredentialsFromProvider for the precedence.
func CredentialsFromEnv(prefix string) (Credentials, error) {
	return CredentialsFromProvider(context.Background(), NewEnvCredentialProvider(prefix))
}

// CredentialsFromProvider builds Credentials from named secrets. The first
// complete combination wins:
//
//  1. app_id, installation_id and private_key: installation token
//  2. client_id, token_url and client_secret or refresh_token: OAuth2
//     (token becomes the initial access token)
//  3. jwt_secret: HS256 JWT issued by api_key (or client_id)
//  4. token: bearer token
//  5. api_key: API key (api_key_header, api_key_prefix optional)
//  6. client_id and client_secret: basic auth
//
// private_key holds PEM data or a path to a PEM file.
func CredentialsFromProvider(ctx context.Context, p CredentialProvider) (Credentials, error) {
	v := make(map[string]string, len(credentialNames))
	var result *multierror.Error
	for _, name := range credentialNames {
		val, err := p.GetCredential(ctx, name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if name != CredAPIKeyPrefix {
			val = strings.TrimSpace(val)
		}
		v[name] = val
	}
	if err := result.ErrorOrNil(); err != nil {
		return Credentials{}, &apierrors.ConfigError{Option: "credentials", Message: "auth: reading credentials", Cause: err}
	}

	switch {
	case v[CredAppID] != "" && v[CredInstallationID] != "" && v[CredPrivateKey] != "":
		return installationFromValues(v)

	case v[CredClientID] != "" && v[CredTokenURL] != "" && (v[CredClientSecret] != "" || v[CredRefreshToken] != ""):
		return Credentials{Kind: KindOAuth2, OAuth2: &OAuth2Credentials{
			ClientID:     v[CredClientID],
			ClientSecret: v[CredClientSecret],
			AuthURL:      v[CredAuthURL],
			TokenURL:     v[CredTokenURL],
			RedirectURL:  v[CredRedirectURI],
			AccessToken:  v[CredToken],
			RefreshToken: v[CredRefreshToken],
		}}, nil

	case v[CredJWTSecret] != "":
		issuer := v[CredAPIKey]
		if issuer == "" {
			issuer = v[CredClientID]
		}
		return Credentials{Kind: KindJWT, JWT: &JWTCredentials{Algorithm: "HS256", Secret: v[CredJWTSecret], Issuer: issuer}}, nil

	case v[CredToken] != "":
		return Credentials{Kind: KindBearer, Bearer: v[CredToken]}, nil

	case v[CredAPIKey] != "":
		return Credentials{Kind: KindAPIKey, APIKey: &APIKeyCredentials{
			Key:    v[CredAPIKey],
			Header: v[CredAPIKeyHeader],
			Prefix: v[CredAPIKeyPrefix],
		}}, nil

	case v[CredClientID] != "" && v[CredClientSecret] != "":
		return Credentials{Kind: KindBasic, Basic: &BasicCredentials{ClientID: v[CredClientID], ClientSecret: v[CredClientSecret]}}, nil
	}
	return Credentials{Kind: KindNone}, ErrNoCredentials
}

func installationFromValues(v map[string]string) (Credentials, error) {
	var result *multierror.Error
	appID, err := strconv.ParseInt(v[CredAppID], 10, 64)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", CredAppID, err))
	}
	installationID, err := strconv.ParseInt(v[CredInstallationID], 10, 64)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", CredInstallationID, err))
	}
	key := []byte(v[CredPrivateKey])
	if !strings.Contains(v[CredPrivateKey], "-----BEGIN") {
		key, err = os.ReadFile(v[CredPrivateKey])
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", CredPrivateKey, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return Credentials{}, &apierrors.ConfigError{Option: "installation", Message: "auth: invalid installation credentials", Cause: err}
	}
	return Credentials{Kind: KindInstallation, Installation: &InstallationCredentials{
		AppID:          appID,
		InstallationID: installationID,
		PrivateKeyPEM:  key,
	}}, nil
}
