package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobysf12/mail-cli/internal/provider/gmail"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage message tags",
		Long: `Tags are backed by provider labels. Adding a tag creates the label
remotely when needed; the remote mutation always happens before the cache is
touched, so a failed call leaves the cache unchanged.`,
	}

	cmd.AddCommand(newTagLsCmd(), newTagAddCmd(), newTagRmCmd())
	return cmd
}

func newTagLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List tags with message counts",
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

			tags, err := app.store.ListTags(ctx, acct.ID)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				cmd.Println("No tags yet. Use 'mail-cli tag add <id> <name>' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tMESSAGES")
			for _, t := range tags {
				fmt.Fprintf(w, "%s\t%d\n", t.Name, t.MessageCount)
			}
			return w.Flush()
		},
	}
}

func newTagAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Tag a message",
		Args:  cobra.ExactArgs(2),
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

			id, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			name := args[1]

			msg, err := app.store.MessageByID(ctx, acct.ID, id)
			if err != nil {
				return err
			}

			mail, err := gmail.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			labelID, err := mail.EnsureLabel(ctx, name)
			if err != nil {
				return err
			}
			if err := mail.AddLabel(ctx, msg.ProviderMessageID, name); err != nil {
				return err
			}

			tag, err := app.store.GetOrCreateTag(ctx, acct.ID, name, labelID)
			if err != nil {
				return err
			}
			if err := app.store.LinkMessageTag(ctx, msg.ID, tag.ID); err != nil {
				return err
			}

			cmd.Printf("Tagged message %d with %q\n", msg.ID, name)
			return nil
		},
	}
}

func newTagRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id> <name>",
		Short: "Remove a tag from a message",
		Args:  cobra.ExactArgs(2),
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

			id, err := parseLocalID(args[0])
			if err != nil {
				return err
			}
			name := args[1]

			msg, err := app.store.MessageByID(ctx, acct.ID, id)
			if err != nil {
				return err
			}

			mail, err := gmail.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			// A label unknown to the provider is a remote no-op; the local
			// link is still removed.
			if err := mail.RemoveLabel(ctx, msg.ProviderMessageID, name); err != nil {
				return err
			}

			tag, err := app.store.TagByName(ctx, acct.ID, name)
			if err != nil {
				return err
			}
			if err := app.store.UnlinkMessageTag(ctx, msg.ID, tag.ID); err != nil {
				return err
			}

			cmd.Printf("Removed tag %q from message %d\n", name, msg.ID)
			return nil
		},
	}
}
