package errors

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
	hferr "github.com/hiveframe/hiveframe-go/errors"
	"github.com/hiveframe/hiveframe-go/hivectx"
	"github.com/pkg/errors"
)

// Error messages
const (
	// Configuration errors (construction arguments, cluster configuration)
	ErrHostAndConfig        = "either host or config file has to be supplied, not both"
	ErrNoHostOrConfig       = "either host or config file has to be supplied"
	ErrReadConfigFile       = "could not read config file"
	ErrParseConfigFile      = "could not parse config file"
	ErrMissingMetastoreURIs = "could not find 'hive.metastore.uris' in config"
	ErrInvalidMetastoreURI  = "could not extract a host from 'hive.metastore.uris'"
	ErrInvalidPort          = "invalid port"
	ErrInvalidTransportMode = "invalid transport mode"

	// Transport errors (cursor operations)
	ErrConnect     = "failed to connect"
	ErrOpenCursor  = "failed to open cursor"
	ErrExecute     = "failed to execute query"
	ErrSchema      = "failed to retrieve result schema"
	ErrFetchPage   = "failed to fetch result page"
	ErrCloseCursor = "failed to close cursor"
	ErrCloseConn   = "failed to close connection"

	// System faults
	ErrClientClosed    = "client is closed"
	ErrChunksClosed    = "chunk sequence is closed"
	ErrRowWidth        = "page row does not match the result schema"
	ErrSchedulerClosed = "scheduler is released"
	ErrStartScheduler  = "failed to start scheduler"
	ErrWrapNil         = "cannot wrap a nil client"
	ErrMetrics         = "failed to register metrics"
)

// Cursor operations reported by transport errors.
const (
	OpConnect = "connect"
	OpOpen    = "open"
	OpExecute = "execute"
	OpSchema  = "schema"
	OpFetch   = "fetch"
	OpClose   = "close"
)

type hiveFrameError struct {
	err           error
	correlationId string
	connectionId  string
	queryId       string
	errType       string
}

var _ error = (*hiveFrameError)(nil)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newHiveFrameError(ctx context.Context, msg string, err error) hiveFrameError {
	// create an error with the new message
	if err == nil {
		err = errors.New(msg)
	} else {
		err = errors.WithMessage(err, msg)
	}

	// if the source error does not have a stack trace in its
	// error chain add a stack trace
	var st stackTracer
	if ok := errors.As(err, &st); !ok {
		err = errors.WithStack(err)
	}

	return hiveFrameError{
		err:           err,
		correlationId: hivectx.CorrelationIdFromContext(ctx),
		connectionId:  hivectx.ConnIdFromContext(ctx),
		queryId:       hivectx.QueryIdFromContext(ctx),
		errType:       "unknown",
	}
}

func (e hiveFrameError) Error() string {
	return fmt.Sprintf("hiveframe: %s: %s", e.errType, e.err.Error())
}

func (e hiveFrameError) Cause() error {
	return e.err
}

func (e hiveFrameError) StackTrace() errors.StackTrace {
	var st stackTracer
	if ok := errors.As(e.err, &st); ok {
		return st.StackTrace()
	}

	return nil
}

func (e hiveFrameError) CorrelationId() string {
	return e.correlationId
}

func (e hiveFrameError) ConnectionId() string {
	return e.connectionId
}

func (e hiveFrameError) QueryId() string {
	return e.queryId
}

// configurationError is raised at construction time for invalid arguments or cluster configuration
type configurationError struct {
	hiveFrameError
}

var _ hferr.HFConfigurationError = (*configurationError)(nil)

func (e configurationError) Is(err error) bool {
	return err == hferr.ConfigurationError
}

func (e configurationError) Unwrap() error {
	return e.err
}

func NewConfigurationError(ctx context.Context, msg string, err error) *configurationError {
	hfErr := newHiveFrameError(ctx, msg, err)
	hfErr.errType = "configuration error"
	return &configurationError{hiveFrameError: hfErr}
}

// transportError wraps failures of cursor operations
type transportError struct {
	hiveFrameError
	operation   string
	isRetryable bool
}

var _ hferr.HFTransportError = (*transportError)(nil)

func (e transportError) Is(err error) bool {
	return err == hferr.TransportError
}

func (e transportError) Unwrap() error {
	return e.err
}

func (e transportError) Operation() string {
	return e.operation
}

func (e transportError) IsRetryable() bool {
	return e.isRetryable
}

func NewTransportError(ctx context.Context, operation string, msg string, err error) *transportError {
	hfErr := newHiveFrameError(ctx, msg, err)
	hfErr.errType = "transport error"
	return &transportError{hiveFrameError: hfErr, operation: operation, isRetryable: isRetryable(err)}
}

// systemFault are issues with the client itself, e.g. calls on a closed client
type systemFault struct {
	hiveFrameError
}

var _ hferr.HFSystemFault = (*systemFault)(nil)

func (e systemFault) Is(err error) bool {
	return err == hferr.SystemFault
}

func (e systemFault) Unwrap() error {
	return e.err
}

func NewSystemFault(ctx context.Context, msg string, err error) *systemFault {
	hfErr := newHiveFrameError(ctx, msg, err)
	hfErr.errType = "system fault"
	return &systemFault{hiveFrameError: hfErr}
}

// isRetryable reports thrift transport conditions that may clear up on their own.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te thrift.TTransportException
	if errors.As(err, &te) {
		switch te.TypeId() {
		case thrift.TIMED_OUT, thrift.NOT_OPEN, thrift.END_OF_FILE:
			return true
		}
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}

	return false
}

// wraps an error and adds trace if not already present
func WrapErr(err error, msg string) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the message
		return errors.WithMessage(err, msg)
	}

	// wrap passed in error in errors with the message and a stack trace
	return errors.Wrap(err, msg)
}

// adds a stack trace if not already present
func WrapErrf(err error, format string, args ...interface{}) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the formatted message
		return errors.WithMessagef(err, format, args...)
	}

	// wrap passed in error in errors with the formatted message and a stack trace
	return errors.Wrapf(err, format, args...)
}
