package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, "https://api.example.com/items?page=2", nil)
}

func TestNewAuthorizer_StaticSchemes(t *testing.T) {
	tests := []struct {
		name   string
		creds  Credentials
		check  func(t *testing.T, r *http.Request)
		status Kind
	}{
		{
			name:  "none",
			creds: Credentials{},
			check: func(t *testing.T, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))
			},
			status: KindNone,
		},
		{
			name:  "api key default header with prefix",
			creds: Credentials{Kind: KindAPIKey, APIKey: &APIKeyCredentials{Key: "k123", Prefix: "Token "}},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "Token k123", r.Header.Get("Authorization"))
			},
			status: KindAPIKey,
		},
		{
			name:  "api key custom header",
			creds: Credentials{Kind: KindAPIKey, APIKey: &APIKeyCredentials{Key: "k123", Header: "X-Api-Key"}},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "k123", r.Header.Get("X-Api-Key"))
				assert.Empty(t, r.Header.Get("Authorization"))
			},
			status: KindAPIKey,
		},
		{
			name:  "api key query keeps existing params",
			creds: Credentials{Kind: KindAPIKey, APIKey: &APIKeyCredentials{Key: "k123", Query: "api_key"}},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "k123", r.URL.Query().Get("api_key"))
				assert.Equal(t, "2", r.URL.Query().Get("page"))
			},
			status: KindAPIKey,
		},
		{
			name:  "basic",
			creds: Credentials{Kind: KindBasic, Basic: &BasicCredentials{ClientID: "id", ClientSecret: "secret"}},
			check: func(t *testing.T, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				require.True(t, ok)
				assert.Equal(t, "id", user)
				assert.Equal(t, "secret", pass)
			},
			status: KindBasic,
		},
		{
			name:  "bearer",
			creds: Credentials{Kind: KindBearer, Bearer: "tok"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			},
			status: KindBearer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAuthorizer(tt.creds)
			require.NoError(t, err)

			r := newRequest(t)
			require.NoError(t, a.Authorize(context.Background(), r))
			tt.check(t, r)
			assert.Equal(t, tt.status, StatusOf(a).Kind)
		})
	}
}

func TestNewAuthorizer_InvalidCredentials(t *testing.T) {
	_, err := NewAuthorizer(Credentials{Kind: KindBearer})
	assert.Error(t, err)
}

type customAuthorizer struct{}

func (customAuthorizer) Authorize(context.Context, *http.Request) error { return nil }
func (customAuthorizer) Refresh(context.Context) error                  { return nil }

func TestStatusOf_Custom(t *testing.T) {
	st := StatusOf(customAuthorizer{})
	assert.Equal(t, Kind("custom"), st.Kind)
	assert.True(t, st.Authenticated)
	assert.True(t, st.Refreshable)
}
