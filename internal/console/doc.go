// Package console carries user-facing messages from the decompilation core
// to whoever renders them.
//
// The core never formats text. It emits an [Entry]: a [Severity], a message
// code such as "error.invalid-jad-path", and the positional parameters for
// that code. A [Sink] decides what to do with it:
//
//   - [LoggerSink] writes the entry to the structured debug log
//   - [Printer] renders it through the English [Catalog] with lipgloss styling
//   - [Recorder] keeps entries in memory for tests
//   - [Multi] fans one entry out to several sinks
//
// All sinks in this package are safe for concurrent use; two stream pumpers
// and the coordinating goroutine may log at the same time.
package console
