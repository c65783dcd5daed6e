//go:build profile

package main

// Built with -tags profile, the prof package serves pprof endpoints at
// localhost:6060/debug/pprof/.
import _ "github.com/ardnew/microbridge/pkg/prof"
