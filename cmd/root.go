package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the meetview application
var rootCmd = &cobra.Command{
	Use:   "meetview",
	Short: "Shows your recent and upcoming Google Calendar meetings",
	Long: `meetview connects a user's Google Calendar through the Composio connection
broker and shows their most recent past and soonest upcoming meetings.

It can run as:
  - An HTTP service with a JSON API, sign-in and an MCP endpoint (serve)
  - A one-shot command printing the meetings of one identity (meetings)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "meetview version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional .env file loaded before reading the environment")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMeetingsCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
