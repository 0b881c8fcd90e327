package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bobysf12/mail-cli/internal/auth"
	"github.com/bobysf12/mail-cli/internal/config"
	"github.com/bobysf12/mail-cli/internal/credstore"
	"github.com/bobysf12/mail-cli/internal/logging"
	"github.com/bobysf12/mail-cli/internal/store"
)

// app bundles the dependencies shared by every command: configuration, the
// local cache, and the token lifecycle manager.
type app struct {
	cfg    *config.Config
	store  *store.Store
	tokens *auth.Manager
	logger *slog.Logger
}

// newApp loads configuration, opens the cache database, and wires the
// credential store into the auth manager.
func newApp() (*app, error) {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(flagVerbose)
	creds := credstore.New(cfg.TokensFile)

	return &app{
		cfg:    cfg,
		store:  st,
		tokens: auth.NewManager(cfg.ClientID, cfg.ClientSecret, creds, logger),
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// account resolves the active account for this invocation: the --account
// flag when given, otherwise the first cached account. When no account is
// cached yet, or the selected account has no stored credential, the
// interactive auth flow runs first so commands work on a fresh install.
func (a *app) account(ctx context.Context) (*store.Account, error) {
	if flagAccount != "" {
		acct, err := a.store.AccountByEmail(ctx, flagAccount)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("account %s is not cached locally, run 'mail-cli auth' first", flagAccount)
		}
		if err != nil {
			return nil, err
		}
		return a.ensureCredential(ctx, acct)
	}

	acct, err := a.store.FirstAccount(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return a.authenticate(ctx)
	}
	if err != nil {
		return nil, err
	}
	return a.ensureCredential(ctx, acct)
}

// ensureCredential re-runs the interactive flow when the account's stored
// credential has gone missing (revoked, or the fallback file was removed).
func (a *app) ensureCredential(ctx context.Context, acct *store.Account) (*store.Account, error) {
	if a.tokens.HasCredential(acct.Email) {
		return acct, nil
	}

	a.logger.Info("no stored credential, starting interactive auth", logging.Account(acct.Email))

	fresh, err := a.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if fresh.Email != acct.Email {
		return nil, fmt.Errorf("authenticated as %s but %s was requested", fresh.Email, acct.Email)
	}
	return fresh, nil
}

// authenticate runs the interactive flow and caches the resulting account.
func (a *app) authenticate(ctx context.Context) (*store.Account, error) {
	email, err := a.tokens.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return a.store.GetOrCreateAccount(ctx, "gmail", email, a.cfg.SyncWindowDays)
}
