// Package auth owns the OAuth token lifecycle for one or more identities:
// the interactive authorization-code flow, silent refresh with expiry
// bookkeeping, and local sign-out. Credentials live in the credstore; this
// package never logs token contents.
package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/bobysf12/mail-cli/internal/credstore"
	"github.com/bobysf12/mail-cli/internal/logging"
)

// refreshMargin is subtracted from the stored expiry before comparing with
// the clock, absorbing clock skew and in-flight request latency so a token
// never expires mid-request.
const refreshMargin = time.Minute

// redirectURL is the fixed redirect target registered with the OAuth client.
// The CLI does not run a callback server; the user pastes the redirected URL
// (or the bare code) back into the terminal.
const redirectURL = "http://127.0.0.1:8765/callback"

// Manager supplies live access tokens for authenticated identities,
// refreshing through the credential store when they go stale.
type Manager struct {
	conf   *oauth2.Config
	store  credstore.Store
	logger *slog.Logger

	// Seams for tests.
	now          func() time.Time
	in           io.Reader
	out          io.Writer
	openURL      func(string) error
	userinfoBase string
}

// NewManager builds a Manager for the given OAuth client. An empty client ID
// or secret is allowed here; Authenticate fails with ErrClientConfig when the
// flow actually needs them.
func NewManager(clientID, clientSecret string, store credstore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
		},
		store:   store,
		logger:  logger,
		now:     time.Now,
		in:      os.Stdin,
		out:     os.Stdout,
		openURL: browser.OpenURL,
	}
}

// Authenticate runs the interactive authorization-code flow and persists the
// resulting credential keyed by the authenticated email, which is returned.
func (m *Manager) Authenticate(ctx context.Context) (string, error) {
	if m.conf.ClientID == "" || m.conf.ClientSecret == "" {
		return "", ErrClientConfig
	}

	authURL := m.conf.AuthCodeURL(uuid.NewString(),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))

	fmt.Fprintf(m.out, "\nOpen this URL in your browser:\n\n%s\n", authURL)
	fmt.Fprintf(m.out, "\nAfter Google redirects, paste the full redirected URL (or the bare code) here.\n")

	// Opening the browser is a convenience only; pasting works regardless.
	if err := m.openURL(authURL); err != nil {
		m.logger.Debug("browser open failed", logging.Err(err))
	}

	fmt.Fprint(m.out, "\nPaste redirected URL (or code): ")
	line, err := readLine(m.in)
	if err != nil {
		return "", fmt.Errorf("reading authorization input: %w", err)
	}

	code := ExtractCode(line)
	if code == "" {
		return "", ErrCodeMissing
	}

	tok, err := m.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchange, err)
	}

	email, err := m.resolveEmail(ctx, tok.AccessToken)
	if err != nil {
		return "", err
	}

	cred := credstore.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := m.store.Put(email, cred); err != nil {
		return "", fmt.Errorf("storing credential: %w", err)
	}

	m.logger.Info("authenticated", logging.Account(email))
	return email, nil
}

// AccessToken returns a live access token for the identity, silently
// refreshing when the stored token expires within the safety margin. It
// returns ErrNotAuthenticated when no credential is on file and ErrRefresh
// when the provider rejects the refresh token.
func (m *Manager) AccessToken(ctx context.Context, email string) (string, error) {
	cred, err := m.store.Get(email)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", fmt.Errorf("%w: %s", ErrNotAuthenticated, email)
	}

	if m.now().Before(cred.ExpiresAt.Add(-refreshMargin)) {
		return cred.AccessToken, nil
	}

	m.logger.Debug("refreshing access token", logging.Account(email))

	ts := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefresh, err)
	}

	// Only the access token and expiry change; the long-lived refresh
	// token is never rotated in this flow.
	next := credstore.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := m.store.Put(email, next); err != nil {
		return "", fmt.Errorf("storing refreshed credential: %w", err)
	}

	return tok.AccessToken, nil
}

// HasCredential reports whether a credential is stored for the identity.
func (m *Manager) HasCredential(email string) bool {
	cred, err := m.store.Get(email)
	return err == nil && cred != nil
}

// Revoke deletes the stored credential. Local sign-out only; no remote
// revocation endpoint is called.
func (m *Manager) Revoke(email string) error {
	return m.store.Delete(email)
}

// TokenSource bridges the manager into the oauth2.TokenSource shape the
// Google API clients consume, so every remote call draws a live token.
func (m *Manager) TokenSource(ctx context.Context, email string) oauth2.TokenSource {
	return &managerSource{ctx: ctx, m: m, email: email}
}

type managerSource struct {
	ctx   context.Context
	m     *Manager
	email string
}

func (s *managerSource) Token() (*oauth2.Token, error) {
	access, err := s.m.AccessToken(s.ctx, s.email)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// resolveEmail looks up the authenticated identity's email address through
// the Google userinfo endpoint using the fresh access token.
func (m *Manager) resolveEmail(ctx context.Context, accessToken string) (string, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}
	if m.userinfoBase != "" {
		opts = append(opts, option.WithEndpoint(m.userinfoBase))
	}

	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("creating userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("resolving authenticated email: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response carried no email")
	}

	return info.Email, nil
}

// ExtractCode pulls the authorization code out of pasted user input: either
// a full redirect URL carrying a code query parameter, or the bare code
// itself.
func ExtractCode(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		u, err := url.Parse(input)
		if err != nil {
			return ""
		}
		return u.Query().Get("code")
	}
	return input
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return scanner.Text(), nil
}
