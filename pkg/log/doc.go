// Package log provides structured protocol logging for the control bus.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events: commands issued and received, acknowledgments,
// state transitions, published events and samples. It is separate from
// operational logging (slog) - protocol capture provides a complete
// machine-readable trace of the command lifecycle for debugging and
// analysis.
//
// # Basic Usage
//
// Components accept a Logger implementation:
//
//	// For development: log to console via slog
//	sender.SetProtocolLogger(log.NewSlogAdapter(slog.Default()))
//
//	// For production: write to binary file
//	fl, _ := log.NewFileLogger("/var/log/salbus/scheduler.slog")
//	sender.SetProtocolLogger(fl)
//
//	// Both: use MultiLogger
//	sender.SetProtocolLogger(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fl,
//	))
//
// # File Format
//
// Log files are a stream of CBOR-encoded Events with .slog extension.
// Reader iterates a recorded stream for offline analysis.
package log
