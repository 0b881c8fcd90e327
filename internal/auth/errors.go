package auth

import "errors"

// Error taxonomy for the authentication flow. Commands match on these with
// errors.Is and turn them into actionable user guidance; none of them is
// retried automatically beyond the single in-flow attempt.
var (
	// ErrClientConfig means no OAuth client ID/secret is configured.
	// Fatal: no auth-dependent command can proceed.
	ErrClientConfig = errors.New("OAuth client credentials not configured (set GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET)")

	// ErrCodeMissing means no authorization code could be extracted from
	// the pasted input.
	ErrCodeMissing = errors.New("no authorization code found in input")

	// ErrExchange means the provider rejected the authorization code.
	ErrExchange = errors.New("authorization code exchange rejected")

	// ErrRefresh means the provider rejected the stored refresh token.
	// The caller should prompt a re-authentication, never auto-loop.
	ErrRefresh = errors.New("token refresh rejected")

	// ErrNotAuthenticated means no credential is on file for the
	// identity.
	ErrNotAuthenticated = errors.New("not authenticated")
)
