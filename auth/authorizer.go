package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/internal/clock"
)

// Authorizer attaches credentials to an outgoing request.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// Refresher is implemented by authorizers whose credential can be renewed
// on demand, e.g. after the server answered 401.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RejectionRefresher is implemented by refreshers that can tell whether
// the credential carried by a rejected request is still the current one.
// RefreshRejected renews the credential only if it is, so callers that
// were rejected together trigger a single refresh.
type RejectionRefresher interface {
	RefreshRejected(ctx context.Context, rejected *http.Request) error
}

// AppAuthorizer is implemented by authorizers that can authenticate as the
// application itself rather than an installation (GitHub /app endpoints).
type AppAuthorizer interface {
	AuthorizeApp(ctx context.Context, req *http.Request) error
}

// Status describes an authorizer's credential without exposing it.
type Status struct {
	Kind          Kind      `json:"kind" yaml:"kind"`
	Authenticated bool      `json:"authenticated" yaml:"authenticated"`
	Expiry        time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`
	AutoRefresh   bool      `json:"auto_refresh" yaml:"auto_refresh"`
	Refreshable   bool      `json:"refreshable" yaml:"refreshable"`
}

// StatusReporter is implemented by every authorizer in this package.
type StatusReporter interface {
	Status() Status
}

// StatusOf returns a's status, or a generic authenticated status for
// authorizers that do not report one.
func StatusOf(a Authorizer) Status {
	if r, ok := a.(StatusReporter); ok {
		return r.Status()
	}
	_, refreshable := a.(Refresher)
	return Status{Kind: "custom", Authenticated: true, Refreshable: refreshable}
}

// Option configures authorizers built by NewAuthorizer.
type Option func(*config)

type config struct {
	httpClient    *http.Client
	clock         clock.Clock
	store         TokenStore
	logger        apiclient.Logger
	onRefresh     func(Token)
	baseURL       string
	refreshMargin time.Duration
}

// WithHTTPClient sets the client used for token endpoint and installation
// token requests. It must not route through the authorizer being built.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) { cfg.httpClient = c }
}

// WithClock overrides the time source (tests).
func WithClock(c clock.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithTokenStore persists OAuth2 tokens across processes.
func WithTokenStore(s TokenStore) Option {
	return func(cfg *config) { cfg.store = s }
}

// WithLogger sets the logger for refresh events.
func WithLogger(l apiclient.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithOnRefresh registers a callback invoked with every newly obtained
// OAuth2 token. It runs after the token lock is released.
func WithOnRefresh(fn func(Token)) Option {
	return func(cfg *config) { cfg.onRefresh = fn }
}

// WithBaseURL sets the API base URL used for installation token exchange.
func WithBaseURL(u string) Option {
	return func(cfg *config) { cfg.baseURL = u }
}

// WithRefreshMargin overrides how long before expiry an OAuth2 token is
// treated as expired.
func WithRefreshMargin(d time.Duration) Option {
	return func(cfg *config) { cfg.refreshMargin = d }
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.clock = clock.OrReal(cfg.clock)
	cfg.logger = apiclient.LoggerOrNop(cfg.logger)
	return cfg
}

// NewAuthorizer validates creds and builds the matching Authorizer.
func NewAuthorizer(creds Credentials, opts ...Option) (Authorizer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	cfg := newConfig(opts)

	switch creds.Kind {
	case KindAPIKey:
		return newAPIKeyAuthorizer(*creds.APIKey), nil
	case KindBasic:
		return basicAuthorizer(*creds.Basic), nil
	case KindBearer:
		return bearerAuthorizer(creds.Bearer), nil
	case KindOAuth2:
		return newTokenManager(*creds.OAuth2, cfg), nil
	case KindJWT:
		return newJWTAuthorizer(*creds.JWT, cfg)
	case KindInstallation:
		return newInstallationAuthorizer(*creds.Installation, cfg)
	default:
		return noneAuthorizer{}, nil
	}
}

type noneAuthorizer struct{}

func (noneAuthorizer) Authorize(context.Context, *http.Request) error { return nil }
func (noneAuthorizer) Status() Status                                 { return Status{Kind: KindNone} }

type apiKeyAuthorizer struct {
	creds APIKeyCredentials
}

func newAPIKeyAuthorizer(c APIKeyCredentials) *apiKeyAuthorizer {
	if c.Header == "" && c.Query == "" {
		c.Header = "Authorization"
	}
	return &apiKeyAuthorizer{creds: c}
}

func (a *apiKeyAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	if a.creds.Query != "" {
		q := req.URL.Query()
		q.Set(a.creds.Query, a.creds.Key)
		req.URL.RawQuery = q.Encode()
		return nil
	}
	req.Header.Set(a.creds.Header, a.creds.Prefix+a.creds.Key)
	return nil
}

func (a *apiKeyAuthorizer) Status() Status {
	return Status{Kind: KindAPIKey, Authenticated: true}
}

type basicAuthorizer BasicCredentials

func (a basicAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(a.ClientID, a.ClientSecret)
	return nil
}

func (a basicAuthorizer) Status() Status {
	return Status{Kind: KindBasic, Authenticated: true}
}

type bearerAuthorizer string

func (a bearerAuthorizer) Authorize(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+string(a))
	return nil
}

func (a bearerAuthorizer) Status() Status {
	return Status{Kind: KindBearer, Authenticated: true}
}
