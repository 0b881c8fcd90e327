package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bobysf12/mail-cli/internal/logging"
	"github.com/bobysf12/mail-cli/internal/provider/gmail"
)

func newSyncCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync recent mail into the local cache",
		Long: `Fetches every message received within the look-back window and reconciles
it into the cache. Re-running the same sync is idempotent: existing rows keep
their local IDs and only provider-owned fields are refreshed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			acct, err := app.account(ctx)
			if err != nil {
				return err
			}

			window := days
			if window <= 0 {
				st, err := app.store.SyncStateFor(ctx, acct.ID)
				if err != nil {
					return err
				}
				window = st.SyncWindowDays
			}

			logger := app.logger.With(logging.Operation("sync"), logging.Account(acct.Email))
			logger.Info("starting mail sync", "days", window)
			start := time.Now()

			mail, err := gmail.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			messages, err := mail.Messages(ctx, window)
			if err != nil {
				return err
			}

			for _, msg := range messages {
				if _, err := app.store.UpsertMessage(ctx, acct.ID, msg); err != nil {
					return err
				}
			}

			if err := app.store.TouchSyncState(ctx, acct.ID, time.Now().UTC()); err != nil {
				return err
			}

			logger.Info("mail sync finished",
				logging.Count(len(messages)),
				logging.Duration(time.Since(start)))
			cmd.Printf("Synced %d messages for %s\n", len(messages), acct.Email)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "look-back window in days (default: the account's configured window)")
	return cmd
}
