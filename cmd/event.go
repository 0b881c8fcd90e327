package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobysf12/mail-cli/internal/provider"
	"github.com/bobysf12/mail-cli/internal/provider/gcal"
	"github.com/bobysf12/mail-cli/internal/rrule"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events",
		Long: `Calendar events are always fetched from the provider and reconciled into
the cache; the printed IDs are local references that stay stable across
listings.`,
	}

	cmd.AddCommand(
		newEventLsCmd(),
		newEventShowCmd(),
		newEventAddCmd(),
		newEventUpdateCmd(),
		newEventRmCmd(),
	)
	return cmd
}

func newEventLsCmd() *cobra.Command {
	var (
		fromArg    string
		toArg      string
		limit      int64
		calendarID string
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List upcoming events",
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

			from := time.Now()
			if fromArg != "" {
				if from, err = parseTimeArg(fromArg, false); err != nil {
					return err
				}
			}
			to := from.AddDate(0, 0, 30)
			if toArg != "" {
				if to, err = parseTimeArg(toArg, false); err != nil {
					return err
				}
			}

			cal, err := gcal.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			events, err := cal.Events(ctx, calendarID, from, to, limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				cmd.Println("No events in the window.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTART\tTITLE")
			for _, ev := range events {
				localID, err := app.store.UpsertEvent(ctx, acct.ID, ev)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\t%s%s\n",
					localID, formatEventStart(ev), truncate(ev.Title, 60), recurringMarker(ev))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&fromArg, "from", "", "window start (RFC 3339 or YYYY-MM-DD, default: now)")
	cmd.Flags().StringVar(&toArg, "to", "", "window end (default: 30 days after start)")
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum number of events to list")
	cmd.Flags().StringVar(&calendarID, "calendar", "", "calendar ID (default: primary)")
	return cmd
}

func newEventShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an event",
		Args:  cobra.ExactArgs(1),
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

			cached, err := app.store.EventByID(ctx, acct.ID, id)
			if err != nil {
				return err
			}

			cal, err := gcal.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			ev, err := cal.Event(ctx, cached.ProviderCalendarID, cached.ProviderEventID)
			if err != nil {
				return err
			}
			if _, err := app.store.UpsertEvent(ctx, acct.ID, *ev); err != nil {
				return err
			}

			printEvent(cmd, id, ev)
			return nil
		},
	}
}

// eventFlags holds the shared add/update flag values.
type eventFlags struct {
	title       string
	startArg    string
	endArg      string
	calendarID  string
	location    string
	description string
	allDay      bool
	rruleArg    string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "event title")
	cmd.Flags().StringVar(&f.startArg, "start", "", "start time (RFC 3339, or YYYY-MM-DD for all-day)")
	cmd.Flags().StringVar(&f.endArg, "end", "", "end time")
	cmd.Flags().StringVar(&f.calendarID, "calendar", "", "calendar ID (default: primary)")
	cmd.Flags().StringVar(&f.location, "location", "", "event location")
	cmd.Flags().StringVar(&f.description, "description", "", "event description")
	cmd.Flags().BoolVar(&f.allDay, "all-day", false, "treat the event as all-day")
	cmd.Flags().StringVar(&f.rruleArg, "rrule", "", `recurrence rule (RFC 5545, e.g. "FREQ=WEEKLY;BYDAY=MO")`)
}

func newEventAddCmd() *cobra.Command {
	var flags eventFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an event",
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

			if flags.title == "" {
				return fmt.Errorf("--title is required")
			}
			start, err := parseTimeArg(flags.startArg, flags.allDay)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := parseTimeArg(flags.endArg, flags.allDay)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if !end.After(start) {
				return fmt.Errorf("--end must be after --start")
			}

			rule := ""
			if flags.rruleArg != "" {
				if rule, err = rrule.Normalize(flags.rruleArg); err != nil {
					return err
				}
			}

			cal, err := gcal.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			ev, err := cal.Create(ctx, provider.EventInput{
				CalendarID:  flags.calendarID,
				Title:       flags.title,
				Description: flags.description,
				Location:    flags.location,
				Start:       start,
				End:         end,
				AllDay:      flags.allDay,
				RRule:       rule,
			})
			if err != nil {
				return err
			}

			localID, err := app.store.UpsertEvent(ctx, acct.ID, *ev)
			if err != nil {
				return err
			}

			cmd.Printf("Created event %d (%s)\n", localID, ev.Title)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newEventUpdateCmd() *cobra.Command {
	var (
		flags      eventFlags
		clearRRule bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an event",
		Long: `Applies a partial update: only the flags you pass are sent to the
provider. --clear-rrule removes recurrence from the series and cannot be
combined with --rrule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearRRule && flags.rruleArg != "" {
				return fmt.Errorf("--rrule and --clear-rrule are mutually exclusive")
			}

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

			cached, err := app.store.EventByID(ctx, acct.ID, id)
			if err != nil {
				return err
			}

			allDay := cached.AllDay
			if cmd.Flags().Changed("all-day") {
				allDay = flags.allDay
			}
			patch := provider.EventPatch{AllDay: allDay, ClearRRule: clearRRule}

			if cmd.Flags().Changed("title") {
				patch.Title = &flags.title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &flags.description
			}
			if cmd.Flags().Changed("location") {
				patch.Location = &flags.location
			}
			if cmd.Flags().Changed("start") {
				start, err := parseTimeArg(flags.startArg, allDay)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				patch.Start = &start
			}
			if cmd.Flags().Changed("end") {
				end, err := parseTimeArg(flags.endArg, allDay)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				patch.End = &end
			}
			if patch.Start != nil && patch.End != nil && !patch.End.After(*patch.Start) {
				return fmt.Errorf("--end must be after --start")
			}
			if flags.rruleArg != "" {
				if patch.RRule, err = rrule.Normalize(flags.rruleArg); err != nil {
					return err
				}
			}

			cal, err := gcal.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			ev, err := cal.Update(ctx, cached.ProviderCalendarID, cached.ProviderEventID, patch)
			if err != nil {
				return err
			}
			if _, err := app.store.UpsertEvent(ctx, acct.ID, *ev); err != nil {
				return err
			}

			cmd.Printf("Updated event %d (%s)\n", id, ev.Title)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&clearRRule, "clear-rrule", false, "remove recurrence from the event")
	return cmd
}

func newEventRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
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

			cached, err := app.store.EventByID(ctx, acct.ID, id)
			if err != nil {
				return err
			}

			cal, err := gcal.New(ctx, acct.Email, app.tokens)
			if err != nil {
				return err
			}

			if err := cal.Delete(ctx, cached.ProviderCalendarID, cached.ProviderEventID); err != nil {
				return err
			}
			if err := app.store.DeleteEvent(ctx, acct.ID, id); err != nil {
				return err
			}

			cmd.Printf("Deleted event %d\n", id)
			return nil
		},
	}
}

// parseTimeArg parses a user-supplied time: a bare date for all-day events,
// otherwise RFC 3339 with a date-only fallback.
func parseTimeArg(arg string, allDay bool) (time.Time, error) {
	if arg == "" {
		return time.Time{}, fmt.Errorf("missing time value")
	}
	if allDay {
		t, err := time.Parse("2006-01-02", arg)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", arg)
		}
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, arg); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", arg, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected RFC 3339 (2026-01-02T15:04:05Z) or YYYY-MM-DD", arg)
}

func formatEventStart(ev provider.Event) string {
	if ev.Start.IsZero() {
		return "-"
	}
	if ev.AllDay {
		return ev.Start.Format("2006-01-02")
	}
	return ev.Start.Local().Format("2006-01-02 15:04")
}

func recurringMarker(ev provider.Event) string {
	if ev.RRule != "" || ev.RecurringEventID != "" {
		return " ↻"
	}
	return ""
}

func printEvent(cmd *cobra.Command, localID int64, ev *provider.Event) {
	cmd.Printf("Event:    #%d %s\n", localID, ev.Title)
	cmd.Printf("Calendar: %s\n", ev.CalendarID)
	cmd.Printf("Start:    %s\n", formatEventStart(*ev))
	if !ev.End.IsZero() {
		if ev.AllDay {
			cmd.Printf("End:      %s\n", ev.End.Format("2006-01-02"))
		} else {
			cmd.Printf("End:      %s\n", ev.End.Local().Format("2006-01-02 15:04"))
		}
	}
	if ev.AllDay {
		cmd.Println("All-day:  yes")
	}
	if ev.Location != "" {
		cmd.Printf("Location: %s\n", ev.Location)
	}
	if ev.Status != "" {
		cmd.Printf("Status:   %s\n", ev.Status)
	}
	if ev.RRule != "" {
		cmd.Printf("Repeats:  %s\n", ev.RRule)
	}
	if ev.HTMLLink != "" {
		cmd.Printf("Link:     %s\n", ev.HTMLLink)
	}
	if ev.Description != "" {
		cmd.Println()
		cmd.Println(ev.Description)
	}
}
