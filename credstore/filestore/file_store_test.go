package filestore_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/stockscope-client/credstore"
	"github.com/jrsteele09/stockscope-client/credstore/filestore"
	errs "github.com/jrsteele09/stockscope-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Plaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")

	s, err := filestore.Open(path, "")
	require.NoError(t, err)

	_, err = s.Get(credstore.AccessTokenKey)
	require.ErrorIs(t, err, credstore.ErrNotFound)

	require.NoError(t, s.Set(credstore.AccessTokenKey, "A1"))
	require.NoError(t, s.Set(credstore.RefreshTokenKey, "R1"))

	t.Run("survives reopen", func(t *testing.T) {
		reopened, err := filestore.Open(path, "")
		require.NoError(t, err)
		v, err := reopened.Get(credstore.AccessTokenKey)
		require.NoError(t, err)
		require.Equal(t, "A1", v)
	})

	t.Run("file permissions", func(t *testing.T) {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(credstore.AccessTokenKey, credstore.RefreshTokenKey, "absent"))
		reopened, err := filestore.Open(path, "")
		require.NoError(t, err)
		_, err = reopened.Get(credstore.RefreshTokenKey)
		require.ErrorIs(t, err, credstore.ErrNotFound)
	})
}

func TestFileStore_Encrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	s, err := filestore.Open(path, "correct horse")
	require.NoError(t, err)
	require.NoError(t, s.Set(credstore.AccessTokenKey, "secret-access-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "secret-access-token"))

	t.Run("right passphrase", func(t *testing.T) {
		reopened, err := filestore.Open(path, "correct horse")
		require.NoError(t, err)
		v, err := reopened.Get(credstore.AccessTokenKey)
		require.NoError(t, err)
		require.Equal(t, "secret-access-token", v)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := filestore.Open(path, "battery staple")
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrCorruptStore)
	})

	t.Run("missing passphrase", func(t *testing.T) {
		_, err := filestore.Open(path, "")
		require.ErrorIs(t, err, errs.ErrCorruptStore)
	})
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := filestore.Open(path, "")
	var storeErr *credstore.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "load", storeErr.Operation)
}
