package auth

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/options"
)

// Kind identifies which variant of Credentials is populated.
type Kind string

const (
	// KindNone sends requests without credentials.
	KindNone Kind = "none"
	// KindAPIKey sends a static key in a header or query parameter.
	KindAPIKey Kind = "api_key"
	// KindBasic sends a client id and secret as HTTP basic auth.
	KindBasic Kind = "basic"
	// KindBearer sends a static bearer token.
	KindBearer Kind = "bearer"
	// KindOAuth2 sends an OAuth2 access token that is refreshed on demand.
	KindOAuth2 Kind = "oauth2"
	// KindJWT sends a self-signed JWT (HS256 or RS256).
	KindJWT Kind = "jwt"
	// KindInstallation sends a GitHub App installation token.
	KindInstallation Kind = "installation"
)

// Kinds lists every credential kind in a stable order.
var Kinds = []Kind{KindNone, KindAPIKey, KindBasic, KindBearer, KindOAuth2, KindJWT, KindInstallation}

// Credentials is a tagged union: Kind selects the variant and exactly one
// variant field must be populated (none for KindNone).
type Credentials struct {
	Kind Kind

	APIKey       *APIKeyCredentials
	Basic        *BasicCredentials
	Bearer       string
	OAuth2       *OAuth2Credentials
	JWT          *JWTCredentials
	Installation *InstallationCredentials
}

// APIKeyCredentials places a static key in a header or query parameter.
type APIKeyCredentials struct {
	Key string

	// Header is the header name. Defaults to Authorization when Query is empty.
	Header string

	// Query is the query parameter name. Mutually exclusive with Header.
	Query string

	// Prefix is prepended to the key in the header value, e.g. "Token ".
	Prefix string
}

// BasicCredentials are sent as HTTP basic auth.
type BasicCredentials struct {
	ClientID     string
	ClientSecret string
}

// OAuth2Credentials configure a TokenManager.
type OAuth2Credentials struct {
	ClientID     string
	ClientSecret string

	// AuthURL is the user consent endpoint. Only needed for the
	// authorization code flow.
	AuthURL string

	// TokenURL is the token endpoint.
	TokenURL string

	// RedirectURL is the callback registered for the authorization code
	// flow. When set, a missing refresh token is not replaced by a
	// client_credentials grant.
	RedirectURL string

	Scopes []string

	// Issuer enables OpenID Connect discovery of AuthURL and TokenURL.
	Issuer string

	// Initial token, if already known.
	AccessToken  string
	RefreshToken string
	Expiry       time.Time

	// DisableAutoRefresh makes expired tokens fail with ErrTokenExpired
	// instead of being refreshed.
	DisableAutoRefresh bool
}

// JWTCredentials sign a short-lived JWT per TTL window.
type JWTCredentials struct {
	// Algorithm is HS256 or RS256. Defaults to HS256 when Secret is set.
	Algorithm string

	// Secret is the HS256 shared secret.
	Secret string

	// PrivateKeyPEM is the RS256 signing key (PKCS#1 or PKCS#8).
	PrivateKeyPEM []byte

	Issuer   string
	Subject  string
	Audience string
	KeyID    string

	// TTL is the token lifetime. Defaults to one hour.
	TTL time.Duration
}

// InstallationCredentials authenticate as a GitHub App installation.
type InstallationCredentials struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  []byte
}

// Validate checks that Kind matches exactly one populated variant and that
// the variant's required fields are present. All problems are reported
// together.
func (c Credentials) Validate() error {
	variants := map[string]bool{
		string(KindAPIKey):       c.APIKey != nil,
		string(KindBasic):        c.Basic != nil,
		string(KindBearer):       c.Bearer != "",
		string(KindOAuth2):       c.OAuth2 != nil,
		string(KindJWT):          c.JWT != nil,
		string(KindInstallation): c.Installation != nil,
	}

	if c.Kind == KindNone || c.Kind == "" {
		for name, set := range variants {
			if set {
				return configError("kind", string(c.Kind), fmt.Sprintf("kind none but %s credentials are set", name), nil)
			}
		}
		return nil
	}

	if err := options.ExactlyOne("credential", variants); err != nil {
		return configError("kind", string(c.Kind), err.Error(), nil)
	}
	if !variants[string(c.Kind)] {
		return configError("kind", string(c.Kind), "kind does not match the populated credential variant", nil)
	}

	var result *multierror.Error
	switch c.Kind {
	case KindAPIKey:
		result = multierror.Append(result, c.APIKey.validate())
	case KindBasic:
		if c.Basic.ClientID == "" {
			result = multierror.Append(result, errors.New("basic: client id is required"))
		}
	case KindOAuth2:
		result = multierror.Append(result, c.OAuth2.validate())
	case KindJWT:
		result = multierror.Append(result, c.JWT.validate())
	case KindInstallation:
		result = multierror.Append(result, c.Installation.validate())
	}
	if err := result.ErrorOrNil(); err != nil {
		return configError(string(c.Kind), "", "invalid credentials", err)
	}
	return nil
}

func (c *APIKeyCredentials) validate() error {
	var result *multierror.Error
	if c.Key == "" {
		result = multierror.Append(result, errors.New("api_key: key is required"))
	}
	if c.Header != "" && c.Query != "" {
		result = multierror.Append(result, errors.New("api_key: header and query are mutually exclusive"))
	}
	return result.ErrorOrNil()
}

func (c *OAuth2Credentials) validate() error {
	var result *multierror.Error
	if c.ClientID == "" && c.AccessToken == "" {
		result = multierror.Append(result, errors.New("oauth2: client id or access token is required"))
	}
	if c.TokenURL == "" && c.Issuer == "" && c.AccessToken == "" {
		result = multierror.Append(result, errors.New("oauth2: token url or issuer is required"))
	}
	for name, raw := range map[string]string{"token url": c.TokenURL, "auth url": c.AuthURL, "issuer": c.Issuer} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || !u.IsAbs() {
			result = multierror.Append(result, fmt.Errorf("oauth2: %s %q is not an absolute url", name, raw))
		}
	}
	return result.ErrorOrNil()
}

func (c *JWTCredentials) validate() error {
	var result *multierror.Error
	switch c.algorithm() {
	case "HS256":
		if c.Secret == "" {
			result = multierror.Append(result, errors.New("jwt: HS256 requires a secret"))
		}
	case "RS256":
		if len(c.PrivateKeyPEM) == 0 {
			result = multierror.Append(result, errors.New("jwt: RS256 requires a private key"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("jwt: unsupported algorithm %q", c.Algorithm))
	}
	if c.TTL < 0 {
		result = multierror.Append(result, errors.New("jwt: ttl must not be negative"))
	}
	return result.ErrorOrNil()
}

func (c *JWTCredentials) algorithm() string {
	if c.Algorithm != "" {
		return c.Algorithm
	}
	if len(c.PrivateKeyPEM) > 0 && c.Secret == "" {
		return "RS256"
	}
	return "HS256"
}

func (c *InstallationCredentials) validate() error {
	var result *multierror.Error
	if c.AppID <= 0 {
		result = multierror.Append(result, errors.New("installation: app id is required"))
	}
	if c.InstallationID <= 0 {
		result = multierror.Append(result, errors.New("installation: installation id is required"))
	}
	if len(c.PrivateKeyPEM) == 0 {
		result = multierror.Append(result, errors.New("installation: private key is required"))
	}
	return result.ErrorOrNil()
}

func configError(option, value, message string, cause error) error {
	return &apierrors.ConfigError{Option: option, Value: value, Message: "auth: " + message, Cause: cause}
}
