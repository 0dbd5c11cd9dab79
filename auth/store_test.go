package auth

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func exerciseStore(t *testing.T, s TokenStore) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store loads nil")

	tok := Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: epoch.Add(time.Hour), Scope: "read"}
	require.NoError(t, s.Save(ctx, tok))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.Equal(t, tok.Scope, got.Scope)
	assert.True(t, tok.Expiry.Equal(got.Expiry))

	require.NoError(t, s.Delete(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, s.Delete(ctx), "deleting twice is not an error")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.yaml")
	s := NewFileStore(path)
	assert.Equal(t, path, s.Path())
	exerciseStore(t, s)
}

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	path := filepath.Join(t.TempDir(), "token.yaml")
	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), Token{AccessToken: "a"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "access_token: a")
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access_token: [unclosed"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	exerciseStore(t, NewKeyringStore("apiclient-test", "default"))
}

func TestKeyringStore_CorruptEntryIsRemoved(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("apiclient-test", "default", "{not json"))

	s := NewKeyringStore("apiclient-test", "default")
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = keyring.Get("apiclient-test", "default")
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}
