package logger

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// HFLogger is a zerolog logger stamped with the ids of the work it reports on.
type HFLogger struct {
	zerolog.Logger
}

// Logger is the package level logger. Use WithContext to derive one that carries ids.
var Logger = &HFLogger{zerolog.New(os.Stderr).With().Timestamp().Logger()}

// enable pretty printing for interactive terminals and json for production.
func init() {
	// for tty terminal enable pretty logs
	if isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows" {
		Logger = &HFLogger{Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})}
	} else {
		// UNIX Time is faster and smaller than most timestamps
		// If you set zerolog.TimeFieldFormat to an empty string,
		// logs will write with UNIX time.
		zerolog.TimeFieldFormat = ""
	}
	// by default only log warnings and errors
	Logger = &HFLogger{Logger.Level(zerolog.WarnLevel)}
}

// SetLogLevel sets the log level from a string such as "debug", "info", "warn", "error" or "disabled".
func SetLogLevel(l string) error {
	lvl, err := zerolog.ParseLevel(l)
	if err != nil {
		return err
	}
	Logger = &HFLogger{Logger.Level(lvl)}
	return nil
}

// SetLogOutput sets the log output to w.
func SetLogOutput(w io.Writer) {
	Logger = &HFLogger{Logger.Output(w)}
}

// WithContext returns a logger whose entries carry the given connection, correlation and query ids.
// Empty ids are omitted.
func WithContext(connectionId string, correlationId string, queryId string) *HFLogger {
	ctx := Logger.With()
	if connectionId != "" {
		ctx = ctx.Str("connId", connectionId)
	}
	if correlationId != "" {
		ctx = ctx.Str("corrId", correlationId)
	}
	if queryId != "" {
		ctx = ctx.Str("queryId", queryId)
	}
	return &HFLogger{ctx.Logger()}
}

// Track is used to log the elapsed time of an operation.
// Call the returned function when the operation is done.
func (l *HFLogger) Track(msg string) func() {
	start := time.Now()
	return func() {
		l.Debug().Dur("elapsed", time.Since(start)).Msg(msg)
	}
}

// Debug starts a new message with debug level.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info starts a new message with info level.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn starts a new message with warn level.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error starts a new message with error level.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Err starts a new message with error level with err as a field if not nil or with info level if err is nil.
func Err(err error) *zerolog.Event {
	return Logger.Err(err)
}
