package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/clock"
	"github.com/erraggy/apiclient/internal/httputil"
)

const (
	// DefaultGitHubBaseURL is used for installation token exchange when no
	// base URL is configured.
	DefaultGitHubBaseURL = "https://api.github.com"

	// installationRotationMargin is how far before expiry the installation
	// token is rotated. Installation tokens live for one hour.
	installationRotationMargin = 5 * time.Minute

	// appJWTLifetime is the maximum GitHub accepts; iat is backdated to
	// tolerate clock skew.
	appJWTLifetime = 10 * time.Minute
	appJWTBackdate = 60 * time.Second
)

// InstallationAuthorizer authenticates as a GitHub App installation: it
// signs an app JWT, exchanges it for an installation access token, and
// rotates that token before it expires.
type InstallationAuthorizer struct {
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	httpClient     *http.Client
	baseURL        string
	clock          clock.Clock
	logger         apiclient.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func newInstallationAuthorizer(creds InstallationCredentials, cfg *config) (*InstallationAuthorizer, error) {
	key, err := parseRSAKey(creds.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(cfg.baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGitHubBaseURL
	}
	return &InstallationAuthorizer{
		appID:          creds.AppID,
		installationID: creds.InstallationID,
		key:            key,
		httpClient:     cfg.httpClient,
		baseURL:        baseURL,
		clock:          cfg.clock,
		logger:         cfg.logger.With("scheme", string(KindInstallation)),
	}, nil
}

// Authorize sets the installation token, rotating it first when needed.
func (a *InstallationAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := a.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// AuthorizeApp sets the app JWT, for endpoints that authenticate the App
// itself rather than an installation.
func (a *InstallationAuthorizer) AuthorizeApp(ctx context.Context, req *http.Request) error {
	tok, err := a.AppJWT(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// Token returns a cached installation token that is valid for at least
// five more minutes, rotating it under the write lock otherwise.
func (a *InstallationAuthorizer) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.validLocked() {
		tok := a.token
		a.mu.RUnlock()
		return tok, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.validLocked() {
		return a.token, nil
	}
	if err := a.rotateLocked(ctx); err != nil {
		return "", err
	}
	return a.token, nil
}

// Refresh rotates the installation token unconditionally.
func (a *InstallationAuthorizer) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rotateLocked(ctx)
}

func (a *InstallationAuthorizer) validLocked() bool {
	return a.token != "" && a.clock.Now().Before(a.expiresAt.Add(-installationRotationMargin))
}

// AppJWT returns an RS256 JWT identifying the App (iss = app id).
func (a *InstallationAuthorizer) AppJWT(_ context.Context) (string, error) {
	now := a.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(a.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-appJWTBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", &apierrors.AuthError{Scheme: string(KindInstallation), Op: "sign", Message: "signing app JWT", Cause: err}
	}
	return signed, nil
}

// rotateLocked exchanges a fresh app JWT for an installation token. Must
// be called with a.mu held for writing.
func (a *InstallationAuthorizer) rotateLocked(ctx context.Context) error {
	appJWT, err := a.AppJWT(ctx)
	if err != nil {
		return err
	}

	url := a.baseURL + "/app/installations/" + strconv.FormatInt(a.installationID, 10) + "/access_tokens"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return &apierrors.AuthError{Scheme: string(KindInstallation), Op: "rotate", Message: "creating token exchange request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &apierrors.AuthError{Scheme: string(KindInstallation), Op: "rotate", Message: "token exchange request", Cause: err}
	}
	defer resp.Body.Close()

	body, err := httputil.ReadBody(resp.Body, 1<<20)
	if err != nil {
		return &apierrors.AuthError{Scheme: string(KindInstallation), Op: "rotate", Message: "reading token exchange response", Cause: err}
	}
	if resp.StatusCode != http.StatusCreated {
		return &apierrors.AuthError{
			Scheme:  string(KindInstallation),
			Op:      "rotate",
			Message: "token exchange rejected",
			Cause:   apierrors.NewHTTPError(http.MethodPost, url, resp.StatusCode, resp.Header, body, a.clock.Now()),
		}
	}

	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return &apierrors.AuthError{Scheme: string(KindInstallation), Op: "rotate", Message: "decoding token exchange response", Cause: err}
	}
	if result.Token == "" {
		return &apierrors.AuthError{Scheme: string(KindInstallation), Op: "rotate", Message: "token exchange returned empty token"}
	}

	a.token, a.expiresAt = result.Token, result.ExpiresAt
	a.logger.Debug("installation token rotated", "installation_id", a.installationID, "expires_at", result.ExpiresAt)
	return nil
}

// Status implements StatusReporter.
func (a *InstallationAuthorizer) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		Kind:          KindInstallation,
		Authenticated: a.validLocked(),
		Expiry:        a.expiresAt,
		AutoRefresh:   true,
		Refreshable:   true,
	}
}
