package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileOnlyStore returns a store whose vault always fails to open, forcing
// every operation through the file fallback.
func newFileOnlyStore(path string) *keyringStore {
	return &keyringStore{
		fallback: fileStore{path: path},
		openRing: func() (keyring.Keyring, error) {
			return nil, errors.New("vault unavailable")
		},
	}
}

func testCredential() Credential {
	return Credential{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileFallbackRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "tokens.json")
	s := newFileOnlyStore(path)

	require.NoError(t, s.Put("alice@example.com", testCredential()))

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testCredential(), *got)
}

func TestFileFallbackFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := newFileOnlyStore(path)

	require.NoError(t, s.Put("alice@example.com", testCredential()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestGetMissingIdentity(t *testing.T) {
	s := newFileOnlyStore(filepath.Join(t.TempDir(), "tokens.json"))

	got, err := s.Get("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := newFileOnlyStore(path)

	require.NoError(t, s.Put("alice@example.com", testCredential()))
	require.NoError(t, s.Delete("alice@example.com"))

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent identity is a no-op.
	require.NoError(t, s.Delete("alice@example.com"))
}

func TestPutKeepsOtherIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := newFileOnlyStore(path)

	alice := testCredential()
	bob := testCredential()
	bob.AccessToken = "bob-access"

	require.NoError(t, s.Put("alice@example.com", alice))
	require.NoError(t, s.Put("bob@example.com", bob))

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-token", got.AccessToken)
}

func TestCorruptFallbackFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := newFileOnlyStore(path)

	got, err := s.Get("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Writing through the corrupt file replaces it with a valid map.
	require.NoError(t, s.Put("alice@example.com", testCredential()))

	got, err = s.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
}
