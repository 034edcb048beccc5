package keystore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

type store interface {
	Load(keys ...string) (map[string]string, error)
	Save(values map[string]string) error
	Delete(keys ...string) error
}

func tempFileStore(t *testing.T) *FileStore {
	return NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) store{
		"memory": func(*testing.T) store { return NewMemoryStore() },
		"file":   func(t *testing.T) store { return tempFileStore(t) },
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			values, err := s.Load("token")
			require.NoError(t, err)
			assert.Empty(t, values)

			require.NoError(t, s.Save(map[string]string{"token": "t", "user": `{"id":"1"}`}))
			require.NoError(t, s.Save(map[string]string{"refreshToken": "r"}))

			values, err = s.Load("token", "refreshToken", "user", "unknown")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"token": "t", "refreshToken": "r", "user": `{"id":"1"}`}, values)

			require.NoError(t, s.Delete("token", "unknown"))
			values, err = s.Load("token", "refreshToken")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"refreshToken": "r"}, values)

			require.NoError(t, s.Delete("refreshToken", "user"))
			require.NoError(t, s.Delete("refreshToken", "user"), "deleting twice is fine")
			values, err = s.Load("refreshToken", "user")
			require.NoError(t, err)
			assert.Empty(t, values)
		})
	}
}

func TestFileStore_Permissions(t *testing.T) {
	s := tempFileStore(t)
	require.NoError(t, s.Save(map[string]string{"token": "secret"}))

	fi, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestFileStore_RemovesFileWhenEmpty(t *testing.T) {
	s := tempFileStore(t)
	require.NoError(t, s.Save(map[string]string{"token": "t"}))
	require.NoError(t, s.Delete("token"))

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	s := tempFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, ioutil.WriteFile(s.Path(), []byte(`{"token": 42`), 0o600))

	_, err := s.Load("token")
	assert.True(t, errors.Is(err, core.ErrSessionCorrupt), "err = %v", err)

	// deleting from a corrupt file drops it
	require.NoError(t, s.Delete("token"))
	values, err := s.Load("token")
	require.NoError(t, err)
	assert.Empty(t, values)

	// saving over a corrupt file replaces it
	require.NoError(t, ioutil.WriteFile(s.Path(), []byte(`garbage`), 0o600))
	require.NoError(t, s.Save(map[string]string{"token": "t"}))
	values, err = s.Load("token")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"token": "t"}, values)
}
