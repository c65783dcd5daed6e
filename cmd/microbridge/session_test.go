package main

import (
	"strings"
	"testing"
	"time"
)

func TestReadLines(t *testing.T) {
	quit := make(chan struct{})
	defer close(quit)

	lines := readLines(strings.NewReader("one\ntwo\n"), quit)

	if got := <-lines; got != "one\n" {
		t.Errorf("first line = %q, want %q", got, "one\n")
	}
	if got := <-lines; got != "two\n" {
		t.Errorf("second line = %q, want %q", got, "two\n")
	}
	if _, ok := <-lines; ok {
		t.Error("channel not closed at EOF")
	}
}

func TestReadLines_QuitReleasesReader(t *testing.T) {
	// More input than the channel buffers, with no consumer: the reader
	// fills the channel and blocks on the next send.
	var input strings.Builder
	for i := 0; i < 20; i++ {
		input.WriteString("line\n")
	}

	quit := make(chan struct{})
	lines := readLines(strings.NewReader(input.String()), quit)

	deadline := time.Now().Add(time.Second)
	for len(lines) < cap(lines) {
		if time.Now().After(deadline) {
			t.Fatal("reader never filled the channel")
		}
		time.Sleep(time.Millisecond)
	}

	// With the channel still full, quit is the only path out of the
	// blocked send.
	close(quit)
	time.Sleep(50 * time.Millisecond)

	got := 0
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				t.Fatal("channel closed; reader ran to EOF after quit")
			}
			got++
			continue
		default:
		}
		break
	}
	if got != cap(lines) {
		t.Errorf("drained %d buffered lines, want %d", got, cap(lines))
	}
}
