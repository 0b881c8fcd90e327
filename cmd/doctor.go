package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/bobysf12/mail-cli/internal/credstore"
	"github.com/bobysf12/mail-cli/internal/provider/gcal"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local setup and stored credentials",
		Long: `Runs health checks: OAuth client configuration, cache database and row
counts, credential storage backends, and a live token probe per cached
account. Never starts the interactive auth flow.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			if app.cfg.HasClientCredentials() {
				pass(cmd, "OAuth client configured")
			} else {
				fail(cmd, "OAuth client missing, set GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET or edit the config file")
			}

			checkDatabase(ctx, cmd, app)
			checkCredentialStorage(cmd, app)
			checkAccounts(ctx, cmd, app)
			return nil
		},
	}
}

func checkDatabase(ctx context.Context, cmd *cobra.Command, app *app) {
	pass(cmd, "cache database at %s", app.cfg.DBPath)

	counts, err := app.store.Counts(ctx)
	if err != nil {
		fail(cmd, "reading table counts: %v", err)
		return
	}
	for _, table := range []string{"accounts", "messages", "tags", "message_tags", "sync_state", "calendar_events"} {
		cmd.Printf("       %-16s %d rows\n", table, counts[table])
	}
}

func checkCredentialStorage(cmd *cobra.Command, app *app) {
	if credstore.VaultAvailable() {
		pass(cmd, "OS credential vault available")
	} else {
		cmd.Println("  --   OS credential vault unavailable, using the fallback file")
	}

	if info, err := os.Stat(app.cfg.TokensFile); err == nil {
		if info.Mode().Perm()&0o077 != 0 {
			fail(cmd, "token fallback file %s is readable by other users (mode %o)", app.cfg.TokensFile, info.Mode().Perm())
		} else {
			pass(cmd, "token fallback file %s (owner-only)", app.cfg.TokensFile)
		}
	} else {
		cmd.Printf("  --   no token fallback file at %s\n", app.cfg.TokensFile)
	}
}

func checkAccounts(ctx context.Context, cmd *cobra.Command, app *app) {
	accounts, err := app.store.Accounts(ctx)
	if err != nil {
		fail(cmd, "listing accounts: %v", err)
		return
	}
	if len(accounts) == 0 {
		cmd.Println("  --   no accounts cached, run 'mail-cli auth' to sign in")
		return
	}

	for _, acct := range accounts {
		if !app.tokens.HasCredential(acct.Email) {
			fail(cmd, "%s: no stored credential", acct.Email)
			continue
		}

		if err := probeUserinfo(ctx, app, acct.Email); err != nil {
			fail(cmd, "%s: token probe failed: %v", acct.Email, err)
			continue
		}
		pass(cmd, "%s: mail token valid", acct.Email)

		if err := probeCalendar(ctx, app, acct.Email); err != nil {
			fail(cmd, "%s: calendar scope probe failed: %v", acct.Email, err)
		} else {
			pass(cmd, "%s: calendar scope granted", acct.Email)
		}
	}
}

// probeUserinfo exercises the refresh path end to end: the token source
// refreshes through the manager when stale, then hits the userinfo endpoint.
func probeUserinfo(ctx context.Context, app *app, email string) error {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(app.tokens.TokenSource(ctx, email)))
	if err != nil {
		return err
	}
	_, err = svc.Userinfo.Get().Context(ctx).Do()
	return err
}

// probeCalendar verifies the calendar scope was actually granted, which an
// older consent may lack.
func probeCalendar(ctx context.Context, app *app, email string) error {
	cal, err := gcal.New(ctx, email, app.tokens)
	if err != nil {
		return err
	}
	_, err = cal.Calendars(ctx)
	return err
}

func pass(cmd *cobra.Command, format string, args ...interface{}) {
	cmd.Printf("  OK   "+format+"\n", args...)
}

func fail(cmd *cobra.Command, format string, args ...interface{}) {
	cmd.Printf("  FAIL "+format+"\n", args...)
}
