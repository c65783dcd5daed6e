package main

import (
	"bufio"
	"io"
	"os"
	"os/signal"

	"github.com/ardnew/microbridge/adb"
	"github.com/ardnew/microbridge/adb/hal/libusb"
	"github.com/ardnew/microbridge/pkg"
)

func openTransport() (*libusb.Transport, error) {
	opts := []libusb.Option{libusb.WithDebug(flagUSBDebug)}
	if flagSerial != "" {
		opts = append(opts, libusb.WithSerial(flagSerial))
	}
	return libusb.Open(opts...)
}

// runSession opens a single connection stream and bridges it to the
// terminal: received payloads go to out, stdin lines are forwarded to the
// device. Returns when the stream closes or on interrupt.
func runSession(out io.Writer, dest string, persistent bool) error {
	transport, err := openTransport()
	if err != nil {
		return err
	}
	defer transport.Close()

	bridge := adb.New(transport)
	if flagBanner != "" {
		bridge.SetBanner(flagBanner)
	}

	done := false
	bridge.SetEventHandler(func(conn *adb.Conn, event adb.EventType, data []byte) {
		switch event {
		case adb.EventConnectionReceive:
			out.Write(data)
		case adb.EventConnectionFailed:
			pkg.LogWarn(pkg.ComponentBridge, "open rejected", "dest", dest)
			done = true
		case adb.EventConnectionClose:
			if !persistent {
				done = true
			}
		}
	})

	conn, err := bridge.AddConnection(dest, persistent, nil)
	if err != nil {
		return err
	}

	quit := make(chan struct{})
	defer close(quit)
	lines := readLines(os.Stdin, quit)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	// The poll loop is paced by the transport's bounded non-blocking read;
	// it does not spin.
	for !done {
		if err := bridge.Poll(); err != nil {
			return err
		}

		select {
		case <-sig:
			return nil
		default:
		}

		// Forward at most one stdin line per cycle, and only while the
		// stream is idle: a write in flight must see its OKAY first.
		if conn.Status() != adb.StatusOpen {
			continue
		}
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := bridge.WriteString(conn, line); err != nil {
				pkg.LogWarn(pkg.ComponentBridge, "write failed", "error", err)
			}
		default:
		}
	}
	return nil
}

// readLines scans r line by line into a buffered channel, reappending the
// newline the scanner strips. The channel is closed at EOF. Closing quit
// releases the reader even when the channel is full, so an abandoned
// session does not leave it blocked on unsent input.
func readLines(r io.Reader, quit <-chan struct{}) <-chan string {
	lines := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text() + "\n":
			case <-quit:
				return
			}
		}
		close(lines)
	}()
	return lines
}
