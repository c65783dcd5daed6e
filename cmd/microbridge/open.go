package main

import (
	"github.com/spf13/cobra"
)

var flagPersistent bool

var openCmd = &cobra.Command{
	Use:   "open <destination>",
	Short: "Open a raw connection stream",
	Long: `Open a connection to an arbitrary destination on the device, such as
"tcp:4321" or "shell:logcat". Received payloads are written to stdout and
stdin lines are forwarded to the stream. With --persistent the stream is
reopened whenever the device closes it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.OutOrStdout(), args[0], flagPersistent)
	},
}

func init() {
	openCmd.Flags().BoolVar(&flagPersistent, "persistent", false, "reopen the stream after the device closes it")
	rootCmd.AddCommand(openCmd)
}
