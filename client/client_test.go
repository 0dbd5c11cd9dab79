package client

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/apiclient"
	"github.com/erraggy/apiclient/apierrors"
	"github.com/erraggy/apiclient/auth"
)

func bufferLogger(buf *bytes.Buffer) apiclient.Logger {
	return apiclient.NewSlogAdapter(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// echoServer records the last request and answers with a JSON object.
func echoServer(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	last := new(http.Request)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*last = *r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func TestNew_BaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "trailing slash trimmed", raw: "https://api.example.com/v1/", want: "https://api.example.com/v1"},
		{name: "query dropped", raw: "https://api.example.com?x=1", want: "https://api.example.com"},
		{name: "plain http allowed", raw: "http://localhost:8080", want: "http://localhost:8080"},
		{name: "relative", raw: "/v1", wantErr: true},
		{name: "unsupported scheme", raw: "ftp://example.com", wantErr: true},
		{name: "no host", raw: "https://", wantErr: true},
		{name: "unparsable", raw: "https://exa mple.com/%zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apierrors.ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "nil http client", opt: WithHTTPClient(nil)},
		{name: "bad media type", opt: WithMediaType("json")},
		{name: "bad host override", opt: WithHostOverride("http://")},
		{name: "zero rate", opt: WithRateLimit(0, 1)},
		{name: "zero burst", opt: WithRateLimit(1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("https://api.example.com", tt.opt)
			require.Error(t, err)
			assert.ErrorIs(t, err, apierrors.ErrConfig)
		})
	}
}

func TestNew_InvalidCredentials(t *testing.T) {
	_, err := New("https://api.example.com", WithCredentials(auth.Credentials{Kind: auth.KindBearer}))
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrConfig)
}

func TestNew_DefaultsWithoutCredentials(t *testing.T) {
	c, err := New("https://api.example.com")
	require.NoError(t, err)

	assert.Equal(t, auth.KindNone, c.AuthStatus().Kind)
	assert.Nil(t, c.ETagCache())
	assert.False(t, c.RateLimit().Known)
	assert.NotNil(t, c.HTTPClient().Transport)
	assert.Equal(t, DefaultTimeout, c.HTTPClient().Timeout)
}

func TestNew_DoesNotModifySuppliedHTTPClient(t *testing.T) {
	hc := &http.Client{}
	c, err := New("https://api.example.com", WithHTTPClient(hc))
	require.NoError(t, err)

	assert.Nil(t, hc.Transport)
	assert.NotSame(t, hc, c.HTTPClient())
}

func TestNew_WarnsOnPlainHTTPWithCredentials(t *testing.T) {
	var buf bytes.Buffer
	_, err := New("http://api.example.com",
		WithCredentials(auth.Credentials{Kind: auth.KindBearer, Bearer: "tok"}),
		WithLogger(bufferLogger(&buf)),
	)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "credentials will be sent over plain http")

	buf.Reset()
	_, err = New("http://api.example.com", WithLogger(bufferLogger(&buf)))
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "plain http")
}

func TestClient_DefaultHeaders(t *testing.T) {
	srv, last := echoServer(t)
	c, err := New(srv.URL,
		WithUserAgent("petstore/1.0"),
		WithMediaType("application/vnd.github+json"),
		WithHeader("X-GitHub-Api-Version", "2022-11-28"),
	)
	require.NoError(t, err)

	require.NoError(t, c.Get(t.Context(), "/pets", nil))
	assert.Equal(t, "petstore/1.0", last.Header.Get("User-Agent"))
	assert.Equal(t, "application/vnd.github+json", last.Header.Get("Accept"))
	assert.Equal(t, "2022-11-28", last.Header.Get("X-GitHub-Api-Version"))
}

func TestClient_DefaultUserAgent(t *testing.T) {
	srv, last := echoServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	require.NoError(t, c.Get(t.Context(), "pets", nil))
	assert.Equal(t, apiclient.UserAgent(), last.Header.Get("User-Agent"))
}

func TestClient_HostOverride(t *testing.T) {
	srv, last := echoServer(t)
	c, err := New("https://api.example.com/v3", WithHostOverride(srv.URL))
	require.NoError(t, err)

	require.NoError(t, c.Get(t.Context(), "/pets", nil))
	assert.Equal(t, "/v3/pets", last.URL.Path)

	// Absolute URLs on the original host are rewritten as well.
	require.NoError(t, c.Get(t.Context(), "https://api.example.com/v3/stores", nil))
	assert.Equal(t, "/v3/stores", last.URL.Path)

	assert.Equal(t, "https://api.example.com/v3", c.BaseURL())
}

func TestClient_RequestIDAndETagOptions(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"rex"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithRequestID(), WithETagCache())
	require.NoError(t, err)

	for range 2 {
		var pet struct{ Name string }
		require.NoError(t, c.Get(t.Context(), "/pets/1", &pet))
		assert.Equal(t, "rex", pet.Name)
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, c.ETagCache().Len())
}

func TestClient_TracksServerRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", "1767225600")
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Get(t.Context(), "/", nil))

	st := c.RateLimit()
	assert.True(t, st.Known)
	assert.Equal(t, 5000, st.Limit)
	assert.Equal(t, 4999, st.Remaining)
}
