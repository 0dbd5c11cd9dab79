package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/auth"
	"github.com/erraggy/apiclient/client"
	"github.com/erraggy/apiclient/endpoint"
	"github.com/erraggy/apiclient/transport"
)

// Config keys.
const (
	keyBaseURL         = "base_url"
	keySpec            = "spec"
	keyHost            = "host"
	keyUserAgent       = "user_agent"
	keyAuthType        = "auth.type"
	keyAuthScopes      = "auth.scopes"
	keyAuthIssuer      = "auth.issuer"
	keyRetryMax        = "retry.max"
	keyRetryWaitMin    = "retry.wait_min"
	keyRetryWaitMax    = "retry.wait_max"
	keyRetryNonIdem    = "retry.non_idempotent"
	keyRateLimitRPS    = "rate_limit.rps"
	keyRateLimitBurst  = "rate_limit.burst"
	keyTokenStoreType  = "token_store.type"
	keyTokenStorePath  = "token_store.path"
	keyETagCache       = "etag_cache"
	keyRequestID       = "request_id"
	envCredentialsPref = "APICLIENT"
)

// Token store types.
const (
	storeFile    = "file"
	storeKeyring = "keyring"
	storeMemory  = "memory"
	storeNone    = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyRetryMax, transport.DefaultRetryMax)
	v.SetDefault(keyRetryWaitMin, transport.DefaultRetryWaitMin)
	v.SetDefault(keyRetryWaitMax, transport.DefaultRetryWaitMax)
	v.SetDefault(keyRateLimitBurst, 1)
	v.SetDefault(keyTokenStoreType, storeFile)
	v.SetDefault(keyRequestID, true)
}

// session is a configured client, plus the catalog when a spec is set.
type session struct {
	client  *client.Client
	catalog *endpoint.Catalog
}

// connect builds a client from the configuration. With needCatalog set a
// spec must be configured.
func (c *RootCmd) connect(ctx context.Context, needCatalog bool) (*session, error) {
	v := c.v
	s := &session{}

	if spec := v.GetString(keySpec); spec != "" {
		cat, err := endpoint.LoadFile(spec)
		if err != nil {
			return nil, err
		}
		s.catalog = cat
	} else if needCatalog {
		return nil, errors.New("no OpenAPI document configured: set spec in the config file, APICLIENT_SPEC or --spec")
	}

	baseURL := v.GetString(keyBaseURL)
	if baseURL == "" && s.catalog != nil {
		baseURL = s.catalog.BaseURL
	}
	if baseURL == "" {
		return nil, errors.New("no base URL configured: set base_url in the config file, APICLIENT_BASE_URL or --base-url")
	}

	opts, err := c.clientOptions(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	s.client, err = client.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("client configured", "base_url", s.client.BaseURL(), "auth", s.client.AuthStatus().Kind)
	return s, nil
}

func (c *RootCmd) clientOptions(ctx context.Context, baseURL string) ([]client.Option, error) {
	v := c.v
	opts := []client.Option{
		client.WithLogger(apiclient.NewSlogAdapter(c.logger)),
		client.WithRetry(transport.RetryConfig{
			Max:                v.GetInt(keyRetryMax),
			WaitMin:            v.GetDuration(keyRetryWaitMin),
			WaitMax:            v.GetDuration(keyRetryWaitMax),
			RetryNonIdempotent: v.GetBool(keyRetryNonIdem),
		}),
	}
	if ua := v.GetString(keyUserAgent); ua != "" {
		opts = append(opts, client.WithUserAgent(ua))
	}
	if host := v.GetString(keyHost); host != "" {
		opts = append(opts, client.WithHostOverride(host))
	}
	if rps := v.GetFloat64(keyRateLimitRPS); rps > 0 {
		opts = append(opts, client.WithRateLimit(rate.Limit(rps), v.GetInt(keyRateLimitBurst)))
	}
	if v.GetBool(keyETagCache) {
		opts = append(opts, client.WithETagCache())
	}
	if v.GetBool(keyRequestID) {
		opts = append(opts, client.WithRequestID())
	}

	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if creds.Kind == auth.KindNone {
		return opts, nil
	}
	opts = append(opts, client.WithCredentials(creds))

	if creds.Kind == auth.KindOAuth2 {
		store, err := c.tokenStore(baseURL)
		if err != nil {
			return nil, err
		}
		if store != nil {
			opts = append(opts, client.WithTokenStore(store))
		}
	}
	return opts, nil
}

// viperCredentials serves credential names from the auth section.
type viperCredentials struct {
	v *viper.Viper
}

func (p viperCredentials) GetCredential(_ context.Context, name string) (string, error) {
	return p.v.GetString("auth." + name), nil
}

// credentials reads the auth section, falling back to APICLIENT_<NAME>
// variables. auth.type "oauth2" forces OAuth2 even when only a client id
// is known, as for public clients using PKCE.
func (c *RootCmd) credentials(ctx context.Context) (auth.Credentials, error) {
	v := c.v
	provider := auth.NewCredentialChain(viperCredentials{v: v}, auth.NewEnvCredentialProvider(envCredentialsPref))

	var creds auth.Credentials
	if v.GetString(keyAuthType) == string(auth.KindOAuth2) {
		creds = auth.Credentials{Kind: auth.KindOAuth2, OAuth2: &auth.OAuth2Credentials{}}
		for name, field := range map[string]*string{
			auth.CredClientID:     &creds.OAuth2.ClientID,
			auth.CredClientSecret: &creds.OAuth2.ClientSecret,
			auth.CredAuthURL:      &creds.OAuth2.AuthURL,
			auth.CredTokenURL:     &creds.OAuth2.TokenURL,
			auth.CredRedirectURI:  &creds.OAuth2.RedirectURL,
			auth.CredRefreshToken: &creds.OAuth2.RefreshToken,
			auth.CredToken:        &creds.OAuth2.AccessToken,
		} {
			val, err := provider.GetCredential(ctx, name)
			if err != nil {
				return auth.Credentials{}, err
			}
			*field = val
		}
	} else {
		var err error
		creds, err = auth.CredentialsFromProvider(ctx, provider)
		if errors.Is(err, auth.ErrNoCredentials) {
			return auth.Credentials{Kind: auth.KindNone}, nil
		}
		if err != nil {
			return auth.Credentials{}, err
		}
	}

	if creds.Kind == auth.KindOAuth2 {
		creds.OAuth2.Scopes = v.GetStringSlice(keyAuthScopes)
		creds.OAuth2.Issuer = v.GetString(keyAuthIssuer)
		if err := creds.OAuth2.DiscoverEndpoints(ctx, nil); err != nil {
			return auth.Credentials{}, err
		}
	}
	return creds, nil
}

// tokenStore opens the configured store for OAuth2 tokens. Unless a path
// is configured, tokens are kept per API host so that one API's token is
// never sent to another.
func (c *RootCmd) tokenStore(baseURL string) (auth.TokenStore, error) {
	v := c.v
	switch typ := v.GetString(keyTokenStoreType); typ {
	case storeFile, "":
		path := v.GetString(keyTokenStorePath)
		if path == "" {
			host, err := apiHost(baseURL)
			if err != nil {
				return nil, err
			}
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(homeDir, ".apiclient", "tokens", strings.ReplaceAll(host, ":", "_")+".yaml")
		}
		return auth.NewFileStore(path), nil
	case storeKeyring:
		host, err := apiHost(baseURL)
		if err != nil {
			return nil, err
		}
		return auth.NewKeyringStore("apiclient", host), nil
	case storeMemory:
		return auth.NewMemoryStore(), nil
	case storeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid token_store.type %q (valid: file, keyring, memory, none)", typ)
	}
}

func apiHost(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base url %q: no host", baseURL)
	}
	return strings.ToLower(u.Host), nil
}
