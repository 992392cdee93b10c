package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys
// consistently across all log statements so records stay queryable
// across sync, core, and share call sites.
const (
	// Distributed Tracing
	KeyTraceID = "trace_id" // correlates log lines across a single client operation
	KeySpanID  = "span_id"  // correlates log lines across a single sub-step

	// Account & Operation
	KeyUsername  = "username"  // account username the operation is running as
	KeyOperation = "operation" // sub-operation type for complex operations
	KeyFileId    = "file_id"   // file id involved in the operation
	KeyPath      = "path"      // decrypted path, when known

	// Sync
	KeyAsOfVersion = "as_of_version" // server version a sync cycle pulled up to
	KeyWorkUnits   = "work_units"    // number of pending work units
	KeyPushed      = "pushed"        // number of records/docs pushed this cycle
	KeyPulled      = "pulled"        // number of records/docs pulled this cycle

	// Operation Metadata
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeySource     = "source"      // origin of the log line: core, sync, share, client
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // maximum retry attempts
)

// TraceID returns a slog.Attr correlating log lines within one operation.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr correlating log lines within one sub-step.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Username returns a slog.Attr for the account username.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Operation returns a slog.Attr for sub-operation type.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// FileId returns a slog.Attr for a file id.
func FileId(id string) slog.Attr {
	return slog.String(KeyFileId, id)
}

// Path returns a slog.Attr for a decrypted file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// AsOfVersion returns a slog.Attr for the server version a sync cycle pulled up to.
func AsOfVersion(v uint64) slog.Attr {
	return slog.Uint64(KeyAsOfVersion, v)
}

// WorkUnits returns a slog.Attr for the number of pending work units.
func WorkUnits(n int) slog.Attr {
	return slog.Int(KeyWorkUnits, n)
}

// Pushed returns a slog.Attr for the number of records/docs pushed.
func Pushed(n int) slog.Attr {
	return slog.Int(KeyPushed, n)
}

// Pulled returns a slog.Attr for the number of records/docs pulled.
func Pulled(n int) slog.Attr {
	return slog.Int(KeyPulled, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Source returns a slog.Attr for the package that emitted the line.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Attempt returns a slog.Attr for retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts.
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
