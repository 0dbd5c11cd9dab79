package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/clock"
	"github.com/erraggy/apiclient/internal/testutil"
)

func newDiscoveryServer(t *testing.T, release <-chan struct{}) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		if release != nil {
			<-release
		}
		testutil.WriteJSON(t, w, http.StatusOK, map[string]any{
			"issuer":                           srv.URL,
			"authorization_endpoint":           srv.URL + "/authorize",
			"token_endpoint":                   srv.URL + "/token",
			"code_challenge_methods_supported": []string{"S256"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDiscoverer_CachesAndDeduplicates(t *testing.T) {
	release := make(chan struct{})
	srv, calls := newDiscoveryServer(t, release)
	fc := clock.Fake(epoch)
	d := NewDiscoverer(WithDiscoveryHTTPClient(srv.Client()), WithDiscoveryClock(fc), WithDiscoveryCacheTTL(time.Minute))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := d.Discover(context.Background(), srv.URL+"/")
			assert.NoError(t, err)
			if cfg != nil {
				assert.Equal(t, srv.URL+"/token", cfg.TokenEndpoint)
			}
		}()
	}
	// Let the goroutines pile up on the in-flight request before answering.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	cfg, err := d.Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, cfg.SupportsPKCE())
	assert.Equal(t, int32(1), calls.Load(), "served from cache")

	fc.Advance(2 * time.Minute)
	_, err = d.Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "cache entry expired")

	d.ClearCache()
	_, err = d.Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDiscoverer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing/.well-known/openid-configuration":
			http.NotFound(w, r)
		default:
			testutil.WriteJSON(t, w, http.StatusOK, map[string]string{"issuer": "x"})
		}
	}))
	defer srv.Close()
	d := NewDiscoverer(WithDiscoveryHTTPClient(srv.Client()))

	_, err := d.Discover(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierrors.ErrAuth))
	assert.True(t, errors.Is(err, apierrors.ErrNotFound))

	_, err = d.Discover(context.Background(), srv.URL+"/incomplete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token_endpoint")
}

func TestOAuth2Credentials_DiscoverEndpoints(t *testing.T) {
	srv, _ := newDiscoveryServer(t, nil)

	creds := OAuth2Credentials{ClientID: "id", Issuer: srv.URL, TokenURL: "https://override.example.com/token"}
	require.NoError(t, creds.DiscoverEndpoints(context.Background(), srv.Client()))
	assert.Equal(t, srv.URL+"/authorize", creds.AuthURL)
	assert.Equal(t, "https://override.example.com/token", creds.TokenURL, "configured urls win")

	none := OAuth2Credentials{ClientID: "id", TokenURL: "https://x/token"}
	require.NoError(t, none.DiscoverEndpoints(context.Background(), nil))
	assert.Empty(t, none.AuthURL)
}

func TestOIDCConfiguration_SupportsGrantType(t *testing.T) {
	cfg := &OIDCConfiguration{}
	assert.True(t, cfg.SupportsGrantType("authorization_code"))
	assert.False(t, cfg.SupportsGrantType("client_credentials"))

	cfg.GrantTypesSupported = []string{"client_credentials"}
	assert.True(t, cfg.SupportsGrantType("client_credentials"))
	assert.False(t, cfg.SupportsPKCE())
}
