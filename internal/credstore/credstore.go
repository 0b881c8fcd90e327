// Package credstore persists per-identity OAuth credentials.
//
// The primary backend is the OS credential vault (Keychain, Secret Service,
// Windows Credential Manager, pass). When the vault is unavailable, for
// example on a headless machine without a secrets daemon, every operation
// silently degrades to a JSON map file created with owner-only permissions.
// Vault failure is the one error class this program deliberately swallows: it
// is an expected, fully compensated condition.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/99designs/keyring"
)

const serviceName = "mail-cli"

// Credential is the stored token material for one identity.
// ExpiresAt is authoritative for access token validity; the provider is
// never probed to find out whether a token is still live.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Store persists credentials keyed by identity (email). Writes are
// synchronous: a failed refresh never persists a mix of old and new fields.
type Store interface {
	Put(identity string, cred Credential) error
	// Get returns nil with no error when no credential is stored.
	Get(identity string) (*Credential, error)
	Delete(identity string) error
}

// keyringStore backs Store with the OS vault, falling back per operation to
// a local file map.
type keyringStore struct {
	fallback fileStore

	// openRing is swappable in tests to simulate a broken vault.
	openRing func() (keyring.Keyring, error)
}

// New returns a Store backed by the OS credential vault with a file fallback
// at fallbackPath.
func New(fallbackPath string) Store {
	return &keyringStore{
		fallback: fileStore{path: fallbackPath},
		openRing: openKeyring,
	}
}

// VaultAvailable reports whether the OS credential vault can be opened and
// enumerated. Diagnostics only; the store itself falls back silently.
func VaultAvailable() bool {
	ring, err := openKeyring()
	if err != nil {
		return false
	}
	_, err = ring.Keys()
	return err == nil
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func (s *keyringStore) Put(identity string, cred Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	ring, err := s.openRing()
	if err == nil {
		err = ring.Set(keyring.Item{Key: identity, Data: payload})
		if err == nil {
			return nil
		}
	}

	return s.fallback.put(identity, payload)
}

func (s *keyringStore) Get(identity string) (*Credential, error) {
	ring, err := s.openRing()
	if err == nil {
		item, err := ring.Get(identity)
		if err == nil {
			return decodeCredential(item.Data)
		}
		if err == keyring.ErrKeyNotFound {
			return nil, nil
		}
	}

	payload, ok := s.fallback.get(identity)
	if !ok {
		return nil, nil
	}
	return decodeCredential(payload)
}

func (s *keyringStore) Delete(identity string) error {
	ring, err := s.openRing()
	if err == nil {
		err = ring.Remove(identity)
		if err == nil || err == keyring.ErrKeyNotFound {
			return nil
		}
	}

	return s.fallback.delete(identity)
}

func decodeCredential(payload []byte) (*Credential, error) {
	var cred Credential
	if err := json.Unmarshal(payload, &cred); err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	return &cred, nil
}

// fileStore is the vault fallback: a JSON map from identity to serialized
// credential, owner read/write only.
type fileStore struct {
	path string
}

func (f fileStore) put(identity string, payload []byte) error {
	m := f.readMap()
	m[identity] = json.RawMessage(payload)
	return f.writeMap(m)
}

func (f fileStore) get(identity string) ([]byte, bool) {
	payload, ok := f.readMap()[identity]
	return payload, ok
}

func (f fileStore) delete(identity string) error {
	m := f.readMap()
	if _, ok := m[identity]; !ok {
		return nil
	}
	delete(m, identity)
	return f.writeMap(m)
}

// readMap treats a missing or corrupt file as an empty map rather than
// failing: losing a cached token only forces a re-auth.
func (f fileStore) readMap() map[string]json.RawMessage {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return map[string]json.RawMessage{}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}

func (f fileStore) writeMap(m map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential file: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	return nil
}
