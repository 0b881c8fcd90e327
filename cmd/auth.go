package cmd

import (
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate a Google account",
		Long: `Runs the interactive OAuth flow: prints an authorization URL, waits for
the pasted redirect URL (or bare code), exchanges it for tokens, and stores
the credential keyed by the authenticated email.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			acct, err := app.authenticate(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf("Authenticated as %s (account #%d)\n", acct.Email, acct.ID)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "logout <email>",
		Short: "Remove the stored credential for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.tokens.Revoke(args[0]); err != nil {
				return err
			}
			cmd.Printf("Removed credential for %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			accounts, err := app.store.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				cmd.Println("No accounts cached. Run 'mail-cli auth' to sign in.")
				return nil
			}

			for _, acct := range accounts {
				state := "no credential"
				if app.tokens.HasCredential(acct.Email) {
					state = "credential stored"
				}
				cmd.Printf("#%d  %s  (%s, %s)\n", acct.ID, acct.Email, acct.Provider, state)
			}
			return nil
		},
	})

	return cmd
}
