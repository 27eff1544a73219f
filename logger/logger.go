// Package logger provides structured logging for the resource server,
// backed by zerolog. Output goes to stdout by default; NewFileLogger adds
// daily-rotated log files for long-running deployments.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
//
// Parameters:
//   - key: The field name
//   - value: The field value
//
// Returns:
//   - A Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger is the logging interface used by every component of the resource
// server. Implementations must be safe for concurrent use.
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a derived Logger that includes the given fields in every
	// entry it writes. The receiver is unchanged.
	With(fields ...Field) Logger

	// Close releases any resources held by the logger, such as open log
	// files. Safe to call more than once.
	Close() error
}

type zerologLogger struct {
	logger zerolog.Logger
	writer *DailyFileWriter
	owner  bool
}

// New returns a Logger writing to the given io.Writer with the service name
// attached to every entry.
//
// Parameters:
//   - out: Destination for log output (e.g. os.Stdout)
//   - service: Service name added as a field to every entry
//   - level: Minimum level to emit
//
// Returns:
//   - A zerolog-backed Logger
func New(out io.Writer, service string, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(out).With().Str("service", service).Timestamp().Logger().Level(level),
	}
}

// NewFileLogger returns a Logger that writes to stdout and to daily-rotated
// files named {service}_{date}.log inside logDir. The directory is created
// if it does not exist.
//
// Parameters:
//   - service: Service name used in entries and file names
//   - logDir: Directory for log files
//   - level: Minimum level to emit
//
// Returns:
//   - The Logger, or an error if the directory or initial file cannot be created
func NewFileLogger(service string, logDir string, level zerolog.Level) (Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	writer, err := NewDailyFileWriter(service, logDir)
	if err != nil {
		return nil, err
	}

	multi := io.MultiWriter(os.Stdout, writer)
	return &zerologLogger{
		logger: zerolog.New(multi).With().Str("service", service).Timestamp().Logger().Level(level),
		writer: writer,
		owner:  true,
	}, nil
}

func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger: z.logger.With().Fields(toMap(fields)).Logger(),
		writer: z.writer,
	}
}

func (z *zerologLogger) Close() error {
	if z.writer != nil && z.owner {
		return z.writer.Close()
	}

	return nil
}

func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}

// Nop returns a Logger that discards everything. Intended for tests and for
// components constructed without an explicit logger.
//
// Returns:
//   - A Logger whose output is discarded
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}
