package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bobysf12/mail-cli/internal/provider/gmail"
)

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a message",
		Long: `Archives the message remotely (removes it from the inbox) and then marks
the cache row archived. The remote call happens first; on failure the cache
is left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessageAction(cmd, args[0], "archive")
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessageAction(cmd, args[0], "delete")
		},
	}
}

// runMessageAction performs a remote mail mutation and flips the matching
// local flag only after the provider accepted it.
func runMessageAction(cmd *cobra.Command, arg, action string) error {
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

	id, err := parseLocalID(arg)
	if err != nil {
		return err
	}

	msg, err := app.store.MessageByID(ctx, acct.ID, id)
	if err != nil {
		return err
	}

	mail, err := gmail.New(ctx, acct.Email, app.tokens)
	if err != nil {
		return err
	}

	switch action {
	case "archive":
		if err := mail.Archive(ctx, msg.ProviderMessageID); err != nil {
			return err
		}
		if err := app.store.SetArchived(ctx, msg.ID, true); err != nil {
			return err
		}
		cmd.Printf("Archived message %d\n", msg.ID)
	case "delete":
		if err := mail.Delete(ctx, msg.ProviderMessageID); err != nil {
			return err
		}
		if err := app.store.SetDeleted(ctx, msg.ID, true); err != nil {
			return err
		}
		cmd.Printf("Deleted message %d\n", msg.ID)
	}
	return nil
}
