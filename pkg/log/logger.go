package log

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Options configures the process logger built by Setup.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // when set, logs go to a rotating file instead of stdout

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(holder{NewZerologLogger(os.Stderr, LevelInfo)})
}

type holder struct{ Logger }

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	return defaultLogger.Load().(holder).Logger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	defaultLogger.Store(holder{l})
}

// Setup builds the process logger from opts, installs it as the default and
// routes library warnings (errors.Warn) into it. The returned closer flushes
// and closes the log file, if any.
func Setup(opts Options) (Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
		}
		w, closer = lj, lj
	}

	switch opts.Format {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	default:
		return nil, nil, errors.NewValidationError("log.format", "must be json or console", opts.Format)
	}

	logger := NewZerologLogger(w, level)
	SetDefault(logger)
	errors.SetZerologWarnFunc(logger.warning)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a JSON logger writing to w at the given minimum level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.zl.Info().Fields(fields).Msg(msg)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

// Error implements Logger.Error. A leading error field is logged with its
// stack trace.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = withError(ev, err)
			fields = fields[1:]
		}
	}
	ev.Fields(fields).Msg(msg)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// warning logs a library warning. Warnings that know how to marshal
// themselves are attached as a structured object.
func (l *ZerologLogger) warning(w error) {
	ev := l.zl.Warn()
	var m zerolog.LogObjectMarshaler
	if cerrors.As(w, &m) {
		ev = ev.Object("warning", m)
	}
	ev.Msg(w.Error())
}

func withError(ev *zerolog.Event, err error) *zerolog.Event {
	ev = ev.Str(ErrorKey, err.Error())
	var m zerolog.LogObjectMarshaler
	if cerrors.As(err, &m) {
		ev = ev.Object("error.detail", m)
	}
	if st := extractStacktrace(err); st != "" {
		ev = ev.Str(StacktraceKey, st)
	}
	return ev
}

// extractStacktrace returns the first safe detail cockroachdb/errors recorded
// for err, which is the stack captured by WithStack/New.
func extractStacktrace(err error) string {
	safeDetails := cerrors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
