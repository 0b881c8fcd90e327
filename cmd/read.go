package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobysf12/mail-cli/internal/provider/gmail"
	"github.com/bobysf12/mail-cli/internal/store"
)

func newLsCmd() *cobra.Command {
	var (
		tag             string
		limit           int
		includeArchived bool
		includeDeleted  bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List cached messages",
		Long: `Lists messages from the local cache, newest first. Run 'sync' first to
populate or refresh the cache; the printed IDs are the local references every
other mail command takes.`,
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

			messages, err := app.store.ListMessages(ctx, acct.ID, store.MessageFilter{
				Tag:             tag,
				IncludeArchived: includeArchived,
				IncludeDeleted:  includeDeleted,
				Limit:           limit,
			})
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				cmd.Println("No messages cached. Run 'mail-cli sync' first.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tFROM\tSUBJECT")
			for _, msg := range messages {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s%s\n",
					msg.ID,
					formatTimePtr(msg.ReceivedAt, "2006-01-02 15:04"),
					senderOf(msg),
					readMarker(msg.Read),
					truncate(msg.Subject, 70))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "only messages carrying this tag")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of messages to list")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived messages")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include deleted messages")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a message with its body",
		Long: `Resolves the local ID, re-fetches the message from the provider so the
displayed content is current, refreshes the cache row, and prints headers,
flags, and the decoded plain-text body.`,
		Args: cobra.ExactArgs(1),
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

			cached, err := app.store.MessageByID(ctx, acct.ID, id)
			if err != nil {
				return err
			}

			mail, err := gmail.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			detail, err := mail.Message(ctx, cached.ProviderMessageID)
			if err != nil {
				return err
			}
			if _, err := app.store.UpsertMessage(ctx, acct.ID, detail.Message); err != nil {
				return err
			}

			cmd.Printf("From:    %s\n", senderOfDetail(detail.FromName, detail.FromEmail))
			cmd.Printf("Subject: %s\n", detail.Subject)
			if !detail.ReceivedAt.IsZero() {
				cmd.Printf("Date:    %s\n", detail.ReceivedAt.Local().Format(time.RFC1123))
			}
			cmd.Printf("Read:    %t\n", detail.Read)
			if cached.Archived || cached.Deleted {
				cmd.Printf("Flags:   archived=%t deleted=%t\n", cached.Archived, cached.Deleted)
			}
			cmd.Println()
			if detail.Body != "" {
				cmd.Println(detail.Body)
			} else if detail.Snippet != "" {
				cmd.Println(detail.Snippet)
			}
			return nil
		},
	}
}

// parseLocalID parses a positional local-ID argument.
func parseLocalID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid local ID %q, expected a positive number from a listing command", arg)
	}
	return id, nil
}

func formatTimePtr(t *time.Time, layout string) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(layout)
}

func senderOf(msg store.Message) string {
	return senderOfDetail(msg.FromName, msg.FromEmail)
}

func senderOfDetail(name, email string) string {
	if name != "" {
		return truncate(name, 30)
	}
	return truncate(email, 30)
}

func readMarker(read bool) string {
	if read {
		return ""
	}
	return "* "
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
