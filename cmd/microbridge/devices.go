package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/microbridge/adb/hal/libusb"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List ADB-capable USB devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := libusb.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no devices found")
			return nil
		}
		for _, info := range infos {
			serial := info.Serial
			if serial == "" {
				serial = "-"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bus %03d addr %03d  %s:%s  serial %-16s  %s\n",
				info.Bus, info.Address, info.VendorID, info.ProductID, serial, info.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
