package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/internal/clock"
	"github.com/erraggy/apiclient/internal/testutil"
)

func newInstallationServer(t *testing.T, fc *clock.FakeClock, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	key, _ := testutil.RSAKey(t)
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/app/installations/42/access_tokens", r.URL.Path)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithTimeFunc(fc.Now))
		assert.NoError(t, err)
		assert.Equal(t, "7", claims.Issuer)
		assert.Equal(t, fc.Now().Add(-60*time.Second).Unix(), claims.IssuedAt.Unix())
		assert.Equal(t, fc.Now().Add(10*time.Minute).Unix(), claims.ExpiresAt.Unix())

		n := calls.Add(1)
		if status != http.StatusCreated {
			testutil.WriteJSON(t, w, status, map[string]string{"message": "Bad credentials"})
			return
		}
		testutil.WriteJSON(t, w, status, map[string]any{
			"token":      "ghs_" + string(rune('0'+n)),
			"expires_at": fc.Now().Add(time.Hour).Format(time.RFC3339),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestInstallation(t *testing.T, srv *httptest.Server, fc *clock.FakeClock) *InstallationAuthorizer {
	t.Helper()
	_, pemBytes := testutil.RSAKey(t)
	a, err := NewAuthorizer(Credentials{Kind: KindInstallation, Installation: &InstallationCredentials{
		AppID:          7,
		InstallationID: 42,
		PrivateKeyPEM:  pemBytes,
	}}, WithClock(fc), WithHTTPClient(srv.Client()), WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	return a.(*InstallationAuthorizer)
}

func TestInstallationAuthorizer_RotatesBeforeExpiry(t *testing.T) {
	fc := clock.Fake(epoch)
	srv, calls := newInstallationServer(t, fc, http.StatusCreated)
	a := newTestInstallation(t, srv, fc)

	r := newRequest(t)
	require.NoError(t, a.Authorize(context.Background(), r))
	assert.Equal(t, "Bearer ghs_1", r.Header.Get("Authorization"))
	assert.True(t, a.Status().Authenticated)

	fc.Advance(54 * time.Minute)
	tok, err := a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_1", tok, "cached until five minutes before expiry")
	assert.Equal(t, int32(1), calls.Load())

	fc.Advance(2 * time.Minute)
	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_2", tok)
	assert.Equal(t, int32(2), calls.Load())

	require.NoError(t, a.Refresh(context.Background()))
	tok, err = a.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_3", tok)
}

func TestInstallationAuthorizer_ExchangeRejected(t *testing.T) {
	fc := clock.Fake(epoch)
	srv, _ := newInstallationServer(t, fc, http.StatusUnauthorized)
	a := newTestInstallation(t, srv, fc)

	_, err := a.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierrors.ErrAuth))
	assert.True(t, errors.Is(err, apierrors.ErrUnauthorized))

	var httpErr *apierrors.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "Bad credentials", httpErr.Message)
}

func TestInstallationAuthorizer_AuthorizeApp(t *testing.T) {
	key, _ := testutil.RSAKey(t)
	fc := clock.Fake(epoch)
	srv, calls := newInstallationServer(t, fc, http.StatusCreated)
	a := newTestInstallation(t, srv, fc)

	r := newRequest(t)
	require.NoError(t, a.AuthorizeApp(context.Background(), r))

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "), &claims,
		func(*jwt.Token) (any, error) { return &key.PublicKey, nil }, jwt.WithTimeFunc(fc.Now))
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Issuer)
	assert.Zero(t, calls.Load(), "app JWT needs no token exchange")
}
