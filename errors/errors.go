package errors

import "github.com/pkg/errors"

// value to be used with errors.Is() to determine if an error chain contains a configuration error
var ConfigurationError error = errors.New("Configuration Error")

// value to be used with errors.Is() to determine if an error chain contains a transport error
var TransportError error = errors.New("Transport Error")

// value to be used with errors.Is() to determine if an error chain contains a system fault
var SystemFault error = errors.New("System Fault")

// Base interface for hiveframe errors
type HiveFrameError interface {
	// Descriptive message describing the error
	Error() string

	// User specified id to track what happens under a request. Useful to track multiple connections in the same request.
	// Appears in log messages as field corrId.  See hivectx.NewContextWithCorrelationId()
	CorrelationId() string

	// Internal id to track what happens under a client. Connections are reused so this would track across queries.
	// Appears in log messages as field connId.
	ConnectionId() string

	// Internal id of the logical call (Execute, FetchAll or FetchChunks) that failed.
	// Appears in log messages as field queryId.
	QueryId() string

	// Stack trace associated with the error.  May be nil.
	StackTrace() errors.StackTrace

	// Underlying causative error. May be nil.
	Cause() error
}

// An error caused by invalid client construction arguments or cluster configuration.
// Configuration errors are always raised before any network activity.
type HFConfigurationError interface {
	HiveFrameError
}

// A failure reported by the cursor transport while opening, executing, reading or closing a cursor.
type HFTransportError interface {
	HiveFrameError

	// Cursor operation that failed: open, execute, schema, fetch or close.
	Operation() string

	// True if the transport reported a condition that may succeed when tried again,
	// e.g. a timeout. This package never retries on its own.
	IsRetryable() bool
}

// A fault in the client itself, e.g. using a client after Close.
type HFSystemFault interface {
	HiveFrameError
}
