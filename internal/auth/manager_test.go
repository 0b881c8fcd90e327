package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bobysf12/mail-cli/internal/credstore"
	"github.com/bobysf12/mail-cli/internal/logging"
)

// memStore is an in-memory credstore.Store for tests.
type memStore struct {
	creds map[string]credstore.Credential
}

func newMemStore() *memStore {
	return &memStore{creds: make(map[string]credstore.Credential)}
}

func (m *memStore) Put(identity string, cred credstore.Credential) error {
	m.creds[identity] = cred
	return nil
}

func (m *memStore) Get(identity string) (*credstore.Credential, error) {
	cred, ok := m.creds[identity]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (m *memStore) Delete(identity string) error {
	delete(m.creds, identity)
	return nil
}

func newTestManager(store credstore.Store) *Manager {
	m := NewManager("client-id", "client-secret", store, logging.New(false))
	m.out = &bytes.Buffer{}
	m.openURL = func(string) error { return nil }
	return m
}

// newTokenServer serves the OAuth token endpoint and a userinfo endpoint on
// the same listener.
func newTokenServer(t *testing.T, email string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"email": email})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticate(t *testing.T) {
	srv := newTokenServer(t, "alice@example.com")
	store := newMemStore()

	m := newTestManager(store)
	m.conf.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	m.userinfoBase = srv.URL
	m.in = strings.NewReader("http://127.0.0.1:8765/callback?state=x&code=auth-code\n")

	email, err := m.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	cred, err := store.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "fresh-access", cred.AccessToken)
	assert.Equal(t, "fresh-refresh", cred.RefreshToken)
	assert.True(t, cred.ExpiresAt.After(time.Now()))
}

func TestAuthenticateNoClientConfig(t *testing.T) {
	m := NewManager("", "", newMemStore(), logging.New(false))

	_, err := m.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrClientConfig)
}

func TestAuthenticateEmptyInput(t *testing.T) {
	m := newTestManager(newMemStore())
	m.in = strings.NewReader("\n")

	_, err := m.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrCodeMissing)
}

func TestAuthenticateExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	m := newTestManager(newMemStore())
	m.conf.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	m.in = strings.NewReader("stale-code\n")

	_, err := m.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrExchange)
}

func TestAccessTokenNotAuthenticated(t *testing.T) {
	m := newTestManager(newMemStore())

	_, err := m.AccessToken(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAccessTokenServedFromCache(t *testing.T) {
	store := newMemStore()
	store.Put("alice@example.com", credstore.Credential{
		AccessToken:  "cached-access",
		RefreshToken: "cached-refresh",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	})

	m := newTestManager(store)
	// Unreachable token endpoint: a refresh attempt would fail the test.
	m.conf.Endpoint = oauth2.Endpoint{TokenURL: "http://127.0.0.1:1/token"}

	access, err := m.AccessToken(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cached-access", access)
}

func TestAccessTokenRefreshesInsideMargin(t *testing.T) {
	srv := newTokenServer(t, "alice@example.com")
	store := newMemStore()
	store.Put("alice@example.com", credstore.Credential{
		AccessToken:  "stale-access",
		RefreshToken: "long-lived-refresh",
		ExpiresAt:    time.Now().Add(30 * time.Second),
	})

	m := newTestManager(store)
	m.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL + "/token"}

	access, err := m.AccessToken(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", access)

	// The stored refresh token is never rotated by a refresh.
	cred, err := store.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "fresh-access", cred.AccessToken)
	assert.Equal(t, "long-lived-refresh", cred.RefreshToken)
}

func TestAccessTokenRefreshRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := newMemStore()
	store.Put("alice@example.com", credstore.Credential{
		AccessToken:  "stale-access",
		RefreshToken: "revoked-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	})

	m := newTestManager(store)
	m.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL + "/token"}

	_, err := m.AccessToken(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrRefresh)
}

func TestHasCredential(t *testing.T) {
	store := newMemStore()
	store.Put("alice@example.com", credstore.Credential{AccessToken: "a"})

	m := newTestManager(store)
	assert.True(t, m.HasCredential("alice@example.com"))
	assert.False(t, m.HasCredential("bob@example.com"))
}

func TestRevoke(t *testing.T) {
	store := newMemStore()
	store.Put("alice@example.com", credstore.Credential{AccessToken: "a"})

	m := newTestManager(store)
	require.NoError(t, m.Revoke("alice@example.com"))
	assert.False(t, m.HasCredential("alice@example.com"))
}

func TestTokenSource(t *testing.T) {
	store := newMemStore()
	store.Put("alice@example.com", credstore.Credential{
		AccessToken:  "cached-access",
		RefreshToken: "cached-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	})

	m := newTestManager(store)

	tok, err := m.TokenSource(context.Background(), "alice@example.com").Token()
	require.NoError(t, err)
	assert.Equal(t, "cached-access", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "full redirect URL",
			input: "http://127.0.0.1:8765/callback?state=xyz&code=4/0Adeu5BX",
			want:  "4/0Adeu5BX",
		},
		{
			name:  "https URL without code parameter",
			input: "https://example.com/callback?state=xyz",
			want:  "",
		},
		{
			name:  "bare code",
			input: "4/0Adeu5BX",
			want:  "4/0Adeu5BX",
		},
		{
			name:  "bare code with whitespace",
			input: "  4/0Adeu5BX \n",
			want:  "4/0Adeu5BX",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.input))
		})
	}
}
