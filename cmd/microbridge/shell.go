package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell [command...]",
	Short: "Run a shell on the device",
	Long: `Open a shell stream on the device. With no arguments an interactive
shell is started and stdin lines are forwarded to it. With arguments the
given command runs on the device and its output is printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := "shell:"
		if len(args) > 0 {
			dest += strings.Join(args, " ")
		}
		return runSession(cmd.OutOrStdout(), dest, false)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
