// Package logging provides structured logging for jdecomp.
//
// It wraps Go's log/slog to write JSON lines to a log file, with child
// loggers that carry request context. Every decompilation request gets its
// own request ID, so the lines for one class can be pulled out of a busy
// batch or watch run with `jdecomp logs --request <id>`.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	reqLogger := logger.WithRequest(id).WithClass("com.example.Foo")
//	reqLogger.Info("process exited", "exit_code", 0, "duration_ms", 42)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"process exited","request_id":"...","class":"com.example.Foo","exit_code":0,"duration_ms":42}
//
// # Log Rotation
//
// Long watch sessions can produce a lot of output. [NewLoggerWithRotation]
// uses a [RotatingWriter] that rolls jdecomp.log over to jdecomp.log.1,
// jdecomp.log.2, ... once it exceeds MaxSizeMB, optionally gzip-compressing
// the backups.
//
// # Testing
//
// Use [NopLogger] to discard all output.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package logging
