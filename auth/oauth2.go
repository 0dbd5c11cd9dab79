package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/clock"
)

// DefaultRefreshMargin is how long before expiry an OAuth2 token is
// refreshed, so a token does not expire while a request is in flight.
const DefaultRefreshMargin = 30 * time.Second

// TokenManager holds an OAuth2 token and refreshes it lazily.
//
// Reads take a shared lock; a refresh takes the exclusive lock, re-checks
// the token, and replaces it whole. Concurrent callers therefore observe
// either the old token or the new one, and at most one refresh runs at a
// time.
type TokenManager struct {
	creds      OAuth2Credentials
	oauth      *oauth2.Config
	httpClient *http.Client
	clock      clock.Clock
	store      TokenStore
	logger     apiclient.Logger
	onRefresh  func(Token)
	margin     time.Duration

	mu          sync.RWMutex
	token       *Token
	autoRefresh bool
	loaded      bool
}

// NewTokenManager builds a TokenManager from OAuth2 credentials.
func NewTokenManager(creds OAuth2Credentials, opts ...Option) (*TokenManager, error) {
	if err := (Credentials{Kind: KindOAuth2, OAuth2: &creds}).Validate(); err != nil {
		return nil, err
	}
	return newTokenManager(creds, newConfig(opts)), nil
}

func newTokenManager(creds OAuth2Credentials, cfg *config) *TokenManager {
	m := &TokenManager{
		creds:       creds,
		httpClient:  cfg.httpClient,
		clock:       cfg.clock,
		store:       cfg.store,
		logger:      cfg.logger.With("scheme", string(KindOAuth2)),
		onRefresh:   cfg.onRefresh,
		margin:      cfg.refreshMargin,
		autoRefresh: !creds.DisableAutoRefresh,
	}
	if m.margin <= 0 {
		m.margin = DefaultRefreshMargin
	}
	m.oauth = m.oauthConfig()

	if creds.AccessToken != "" || creds.RefreshToken != "" {
		m.token = &Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.Expiry,
		}
		m.loaded = true
	} else if m.store == nil {
		m.loaded = true
	}
	return m
}

func (m *TokenManager) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
		RedirectURL:  m.creds.RedirectURL,
		Scopes:       m.creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.creds.AuthURL,
			TokenURL: m.creds.TokenURL,
		},
	}
}

// Authorize sets the Authorization header from a valid token.
func (m *TokenManager) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := m.Token(ctx)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	return nil
}

// Token returns a valid token, refreshing it first when it is expired (or
// about to) and auto-refresh is enabled. With auto-refresh disabled an
// expired token yields an *apierrors.AuthError matching ErrTokenExpired.
func (m *TokenManager) Token(ctx context.Context) (Token, error) {
	m.mu.RLock()
	if m.loaded && m.token != nil && m.token.Valid(m.clock.Now(), m.margin) {
		tok := *m.token
		m.mu.RUnlock()
		return tok, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	if err := m.loadLocked(ctx); err != nil {
		m.mu.Unlock()
		return Token{}, err
	}
	if m.token != nil && m.token.Valid(m.clock.Now(), m.margin) {
		tok := *m.token
		m.mu.Unlock()
		return tok, nil
	}
	if !m.autoRefresh {
		expired := m.token != nil && m.token.AccessToken != ""
		m.mu.Unlock()
		if expired {
			return Token{}, &apierrors.AuthError{Scheme: string(KindOAuth2), Op: "token", Expired: true}
		}
		return Token{}, &apierrors.AuthError{Scheme: string(KindOAuth2), Op: "token", Message: "no token available and auto-refresh is disabled"}
	}
	tok, err := m.refreshLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return Token{}, err
	}
	m.notify(tok)
	return tok, nil
}

// Refresh obtains a new token regardless of the current token's expiry.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if err := m.loadLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	tok, err := m.refreshLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(tok)
	return nil
}

// RefreshRejected refreshes the token unless the Authorization header of
// rejected no longer matches it, which means another caller already
// replaced the token the server refused.
func (m *TokenManager) RefreshRejected(ctx context.Context, rejected *http.Request) error {
	m.mu.Lock()
	if err := m.loadLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.token != nil && m.token.AccessToken != "" {
		current := &http.Request{Header: http.Header{}}
		m.token.SetAuthHeader(current)
		if current.Header.Get("Authorization") != rejected.Header.Get("Authorization") {
			m.mu.Unlock()
			m.logger.Debug("rejected token already replaced, skipping refresh")
			return nil
		}
	}
	tok, err := m.refreshLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(tok)
	return nil
}

// loadLocked reads the initial token from the store once. Must be called
// with m.mu held for writing.
func (m *TokenManager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	tok, err := m.store.Load(ctx)
	if err != nil {
		return &apierrors.AuthError{Scheme: string(KindOAuth2), Op: "load", Message: "reading token store", Cause: err}
	}
	if tok != nil {
		m.token = tok
		m.logger.Debug("loaded token from store", "expiry", tok.Expiry)
	}
	m.loaded = true
	return nil
}

// Load reads the token store once, without refreshing. Status and
// CurrentToken only report a stored token after Load or a first request.
func (m *TokenManager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx)
}

// refreshLocked runs the refresh_token grant, or the client_credentials
// grant when no refresh token exists and no redirect flow is configured.
// Must be called with m.mu held for writing.
func (m *TokenManager) refreshLocked(ctx context.Context) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	var (
		refreshToken string
		grant        string
		ot           *oauth2.Token
		err          error
	)
	if m.token != nil {
		refreshToken = m.token.RefreshToken
	}

	switch {
	case refreshToken != "":
		grant = "refresh_token"
		ot, err = m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	case m.creds.ClientSecret != "" && m.creds.RedirectURL == "":
		grant = "client_credentials"
		cc := &clientcredentials.Config{
			ClientID:     m.creds.ClientID,
			ClientSecret: m.creds.ClientSecret,
			TokenURL:     m.creds.TokenURL,
			Scopes:       m.creds.Scopes,
		}
		ot, err = cc.Token(ctx)
	default:
		return Token{}, &apierrors.AuthError{
			Scheme:  string(KindOAuth2),
			Op:      "refresh",
			Expired: m.token != nil && m.token.AccessToken != "",
			Message: "no refresh token or client credentials available",
		}
	}
	if err != nil {
		m.logger.Warn("token refresh failed", "grant", grant, "error", err)
		return Token{}, &apierrors.AuthError{Scheme: string(KindOAuth2), Op: "refresh", Message: grant + " grant failed", Cause: err}
	}

	tok := tokenFromOAuth2(ot, m.clock.Now())
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	m.token = &tok
	m.persist(ctx, tok)
	m.logger.Debug("token refreshed", "grant", grant, "expiry", tok.Expiry)
	return tok, nil
}

func (m *TokenManager) persist(ctx context.Context, tok Token) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, tok); err != nil {
		m.logger.Warn("saving token failed", "error", err)
	}
}

func (m *TokenManager) notify(tok Token) {
	if m.onRefresh != nil {
		m.onRefresh(tok)
	}
}

// SetAutoRefresh enables or disables lazy refresh.
func (m *TokenManager) SetAutoRefresh(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoRefresh = enabled
}

// AutoRefresh reports whether lazy refresh is enabled.
func (m *TokenManager) AutoRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.autoRefresh
}

// SetToken replaces the current token and persists it.
func (m *TokenManager) SetToken(ctx context.Context, tok Token) error {
	m.mu.Lock()
	m.token = &tok
	m.loaded = true
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(ctx, tok); err != nil {
			return &apierrors.AuthError{Scheme: string(KindOAuth2), Op: "save", Message: "writing token store", Cause: err}
		}
	}
	return nil
}

// CurrentToken returns the held token without refreshing it.
func (m *TokenManager) CurrentToken() (Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return Token{}, false
	}
	return *m.token, true
}

// Expired reports whether the held token is missing or within the refresh
// margin of its expiry.
func (m *TokenManager) Expired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token == nil || !m.token.Valid(m.clock.Now(), m.margin)
}

// ExpiresIn returns the time until the held token expires: zero when it
// has expired or there is none, and -1 when it never expires.
func (m *TokenManager) ExpiresIn() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil || m.token.AccessToken == "" {
		return 0
	}
	if m.token.Expiry.IsZero() {
		return -1
	}
	if d := m.token.Expiry.Sub(m.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Status implements StatusReporter.
func (m *TokenManager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Status{Kind: KindOAuth2, AutoRefresh: m.autoRefresh}
	if m.token != nil {
		st.Authenticated = m.token.Valid(m.clock.Now(), 0)
		st.Expiry = m.token.Expiry
		st.Refreshable = m.token.RefreshToken != ""
	}
	if m.creds.ClientSecret != "" && m.creds.RedirectURL == "" {
		st.Refreshable = true
	}
	return st
}

// ConsentURL returns the authorization code flow URL the user visits to
// grant access. scopes, when given, replace the configured scopes.
func (m *TokenManager) ConsentURL(state string, scopes ...string) string {
	return m.consentConfig(scopes).AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ConsentURLWithPKCE is ConsentURL with an S256 PKCE challenge. The
// returned verifier must be passed to Exchange.
func (m *TokenManager) ConsentURLWithPKCE(state string, scopes ...string) (consentURL, verifier string) {
	verifier = oauth2.GenerateVerifier()
	consentURL = m.consentConfig(scopes).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	return consentURL, verifier
}

func (m *TokenManager) consentConfig(scopes []string) *oauth2.Config {
	if len(scopes) == 0 {
		return m.oauth
	}
	cfg := *m.oauth
	cfg.Scopes = scopes
	return &cfg
}

// Exchange trades an authorization code for a token, stores it and
// persists it. verifier is the PKCE verifier, or empty.
func (m *TokenManager) Exchange(ctx context.Context, code, verifier string) (Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	ot, err := m.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, m.httpClient), code, opts...)
	if err != nil {
		return Token{}, &apierrors.AuthError{Scheme: string(KindOAuth2), Op: "exchange", Message: "authorization code exchange failed", Cause: err}
	}

	tok := tokenFromOAuth2(ot, m.clock.Now())
	m.mu.Lock()
	m.token = &tok
	m.loaded = true
	m.persist(ctx, tok)
	m.mu.Unlock()

	m.notify(tok)
	return tok, nil
}

// Logout forgets the held token and deletes it from the store.
func (m *TokenManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.loaded = true
	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx)
}
