// Package pkg provides shared utilities for the microbridge ADB engine.
//
// This package contains common functionality used across the protocol
// engine, the transport HALs, and the CLI, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for engine and transport failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with bridge-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentBridge, "link established", "banner", banner)
//
// # Errors
//
// Common failures are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNotOpen) {
//	    // Connection is not open for writing
//	}
package pkg
