// Package cmd implements the voiceline command line interface.
package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "voiceline",
		Short:         "voiceline: real-time conversational banking agent",
		Long:          "voiceline runs the Bank ABC voice agent: WebSocket endpoints for text and voice sessions, speech recognition and synthesis, and a Postgres-backed session store.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
