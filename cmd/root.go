package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mail-cli application
var rootCmd = &cobra.Command{
	Use:   "mail-cli",
	Short: "Read, tag, and sync Gmail and Google Calendar from the terminal",
	Long: `mail-cli mirrors your mail and calendar into a local cache and relays
mutations (archive, delete, tag, event changes) back to the provider.

Records are referenced by small local IDs assigned during sync; run the
listing commands (sync, ls, event ls) to refresh them.`,
	SilenceUsage: true,
}

// Global flags shared by every command.
var (
	flagAccount string
	flagVerbose bool
)

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mail-cli version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAccount, "account", "", "account email to use (default: first cached account)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newTagCmd())
	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newEventCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("mail-cli version %s\n", version)
		},
	}
}
