package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ardnew/microbridge/pkg"
)

var (
	flagLogLevel string
	flagJSON     bool
	flagUSBDebug int
	flagSerial   string
	flagBanner   string
)

var rootCmd = &cobra.Command{
	Use:           "microbridge",
	Short:         "Host-side ADB bridge over USB",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(flagLogLevel)
		if err != nil {
			return err
		}
		pkg.SetLogLevel(level)
		if flagJSON {
			pkg.SetLogFormat(pkg.LogFormatJSON)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVar(&flagJSON, "json", false, "emit logs as JSON")
	pf.IntVar(&flagUSBDebug, "usb-debug", 0, "libusb debug level (0-3)")
	pf.StringVarP(&flagSerial, "serial", "s", "", "select device by serial number")
	pf.StringVar(&flagBanner, "banner", "", "override the connection banner")
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
