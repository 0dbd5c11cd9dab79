package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/clock"
	"github.com/erraggy/apiclient/internal/httputil"
)

// DefaultDiscoveryCacheTTL is how long a discovered configuration is reused.
const DefaultDiscoveryCacheTTL = time.Hour

const wellKnownOpenIDConfiguration = "/.well-known/openid-configuration"

// OIDCConfiguration is the subset of an OpenID Provider's metadata used to
// configure OAuth2 flows.
type OIDCConfiguration struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	UserinfoEndpoint              string   `json:"userinfo_endpoint,omitempty"`
	JwksURI                       string   `json:"jwks_uri,omitempty"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// SupportsPKCE reports whether the provider advertises S256 challenges.
func (c *OIDCConfiguration) SupportsPKCE() bool {
	return slices.Contains(c.CodeChallengeMethodsSupported, "S256")
}

// SupportsGrantType reports whether grantType is advertised. Providers
// that omit the list support the RFC 8414 defaults.
func (c *OIDCConfiguration) SupportsGrantType(grantType string) bool {
	if len(c.GrantTypesSupported) == 0 {
		return grantType == "authorization_code" || grantType == "implicit"
	}
	return slices.Contains(c.GrantTypesSupported, grantType)
}

// Discoverer fetches OpenID Provider configurations, deduplicating
// concurrent lookups of the same issuer and caching results.
type Discoverer struct {
	httpClient *http.Client
	cacheTTL   time.Duration
	clock      clock.Clock

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]discoveryEntry
}

type discoveryEntry struct {
	config  *OIDCConfiguration
	fetched time.Time
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithDiscoveryHTTPClient sets the HTTP client used for discovery.
func WithDiscoveryHTTPClient(c *http.Client) DiscovererOption {
	return func(d *Discoverer) { d.httpClient = c }
}

// WithDiscoveryCacheTTL sets how long results are cached.
func WithDiscoveryCacheTTL(ttl time.Duration) DiscovererOption {
	return func(d *Discoverer) { d.cacheTTL = ttl }
}

// WithDiscoveryClock overrides the time source (tests).
func WithDiscoveryClock(c clock.Clock) DiscovererOption {
	return func(d *Discoverer) { d.clock = c }
}

// NewDiscoverer returns a Discoverer.
func NewDiscoverer(opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{cacheTTL: DefaultDiscoveryCacheTTL, cache: make(map[string]discoveryEntry)}
	for _, opt := range opts {
		opt(d)
	}
	if d.httpClient == nil {
		d.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	d.clock = clock.OrReal(d.clock)
	return d
}

var defaultDiscoverer = NewDiscoverer()

// Discover fetches issuer's configuration using the shared Discoverer.
// httpClient may be nil.
func Discover(ctx context.Context, httpClient *http.Client, issuer string) (*OIDCConfiguration, error) {
	return defaultDiscoverer.discover(ctx, httpClient, issuer)
}

// Discover fetches issuer's configuration.
func (d *Discoverer) Discover(ctx context.Context, issuer string) (*OIDCConfiguration, error) {
	return d.discover(ctx, nil, issuer)
}

// ClearCache drops all cached configurations.
func (d *Discoverer) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[string]discoveryEntry)
}

func (d *Discoverer) discover(ctx context.Context, httpClient *http.Client, issuer string) (*OIDCConfiguration, error) {
	issuer = strings.TrimRight(issuer, "/")

	d.mu.Lock()
	if e, ok := d.cache[issuer]; ok && d.clock.Now().Sub(e.fetched) < d.cacheTTL {
		d.mu.Unlock()
		return e.config, nil
	}
	d.mu.Unlock()

	if httpClient == nil {
		httpClient = d.httpClient
	}
	v, err, _ := d.group.Do(issuer, func() (any, error) {
		cfg, err := fetchOIDCConfiguration(ctx, httpClient, issuer, d.clock.Now())
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.cache[issuer] = discoveryEntry{config: cfg, fetched: d.clock.Now()}
		d.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*OIDCConfiguration), nil
}

func fetchOIDCConfiguration(ctx context.Context, httpClient *http.Client, issuer string, now time.Time) (*OIDCConfiguration, error) {
	url := issuer + wellKnownOpenIDConfiguration
	discoveryErr := func(msg string, cause error) error {
		return &apierrors.AuthError{Scheme: "oidc", Op: "discover", Message: msg, Cause: cause}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, discoveryErr("creating discovery request", err)
	}
	req.Header.Set("Accept", httputil.MediaTypeJSON)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, discoveryErr("fetching "+url, err)
	}
	defer resp.Body.Close()

	body, err := httputil.ReadBody(resp.Body, 1<<20)
	if err != nil {
		return nil, discoveryErr("reading discovery document", err)
	}
	if !httputil.IsSuccess(resp.StatusCode) {
		return nil, discoveryErr("discovery endpoint rejected request", apierrors.NewHTTPError(http.MethodGet, url, resp.StatusCode, resp.Header, body, now))
	}

	var cfg OIDCConfiguration
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, discoveryErr("decoding discovery document", err)
	}
	if cfg.TokenEndpoint == "" {
		return nil, discoveryErr("discovery document has no token_endpoint", nil)
	}
	return &cfg, nil
}

// ApplyDiscovery fills empty AuthURL and TokenURL from cfg.
func (c *OAuth2Credentials) ApplyDiscovery(cfg *OIDCConfiguration) {
	if c.AuthURL == "" {
		c.AuthURL = cfg.AuthorizationEndpoint
	}
	if c.TokenURL == "" {
		c.TokenURL = cfg.TokenEndpoint
	}
}

// DiscoverEndpoints runs discovery for c.Issuer when AuthURL or TokenURL is
// missing and fills them in.
func (c *OAuth2Credentials) DiscoverEndpoints(ctx context.Context, httpClient *http.Client) error {
	if c.Issuer == "" || (c.AuthURL != "" && c.TokenURL != "") {
		return nil
	}
	cfg, err := Discover(ctx, httpClient, c.Issuer)
	if err != nil {
		return err
	}
	c.ApplyDiscovery(cfg)
	return nil
}
