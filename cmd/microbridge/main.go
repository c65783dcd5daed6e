// Command microbridge is a host-side ADB bridge for USB-attached devices.
//
// It locates a device exposing the ADB interface signature, performs the
// connection handshake, and multiplexes logical connection streams over
// the device's bulk endpoints.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
