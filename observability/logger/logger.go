package logger

import (
	"context"
	"errors"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/meta"
	"go.uber.org/zap"
)

// Logger defines the logging interface used by every docqueue component.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg any)
	// Info logs a message at info level.
	Info(msg any)
	// Warn logs a message at warn level.
	Warn(msg any)
	// Error logs a message at error level.
	Error(msg any)
	// Fatal logs a message at fatal level and then calls os.Exit(1).
	Fatal(msg any)

	// Debugf logs a formatted message at debug level.
	Debugf(format string, args ...any)
	// Infof logs a formatted message at info level.
	Infof(format string, args ...any)
	// Warnf logs a formatted message at warn level.
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at error level.
	Errorf(format string, args ...any)

	// Warnx logs an errx.ErrorX with its code, type, trace and details at warn level.
	Warnx(err error)
	// Errorx logs an errx.ErrorX with its code, type, trace and details at error level.
	Errorx(err error)
	// Fatalx logs an errx.ErrorX at fatal level and then calls os.Exit(1).
	Fatalx(err error)

	// With returns a child logger that adds the key-value pairs to every entry.
	With(keysAndValues ...any) Logger
	// WithContext returns a child logger enriched with the meta values found in ctx.
	WithContext(ctx context.Context) Logger

	// Named adds a sub-scope to the logger's name.
	Named(name string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

// logger implements Logger on top of zap's SugaredLogger.
type logger struct {
	*zap.SugaredLogger
}

func newLogger(cfg Config) (Logger, error) {
	if cfg.Disable {
		return NewNop(), nil
	}

	zapConfig, err := cfg.getZapConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	zl, err := zapConfig.Build()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return &logger{zl.Sugar()}, nil
}

// New creates a Logger with the provided configuration.
func New(cfg Config) (Logger, error) {
	return newLogger(cfg)
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &logger{zap.NewNop().Sugar()}
}

// withErrorFields attaches errx metadata when err carries it.
func (l *logger) withErrorFields(err error) *zap.SugaredLogger {
	var e errx.ErrorX
	if !errors.As(err, &e) {
		return l.SugaredLogger
	}
	return l.SugaredLogger.With(
		"error_code", e.Code(),
		"error_type", e.Type().String(),
		"error_trace", e.Trace(),
		"error_fields", e.Fields(),
		"error_details", e.Details(),
	)
}

func (l *logger) Warnx(err error) {
	l.withErrorFields(err).Warn(err.Error())
}

func (l *logger) Errorx(err error) {
	l.withErrorFields(err).Error(err.Error())
}

func (l *logger) Fatalx(err error) {
	l.withErrorFields(err).Fatal(err.Error())
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	var fields []any
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		// zap rejects non-string keys
		fields = append(fields, string(k), v)
	}

	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func (l *logger) Named(name string) Logger {
	return &logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

func (l *logger) Debug(msg any) { l.SugaredLogger.Debug(msg) }
func (l *logger) Info(msg any)  { l.SugaredLogger.Info(msg) }
func (l *logger) Warn(msg any)  { l.SugaredLogger.Warn(msg) }
func (l *logger) Error(msg any) { l.SugaredLogger.Error(msg) }
func (l *logger) Fatal(msg any) { l.SugaredLogger.Fatal(msg) }
