package logging

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// LogFields represents structured logging key/value pairs used by mfuses.
type LogFields map[string]any

// ServiceLogger is the minimal logging contract required by mfuses. Broker
// backends and the call facade log through it so host applications can plug
// in their existing logging pipeline without depending on a concrete library.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Trace(msg string, fields LogFields)
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Warn(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
}

// Settings mirrors the logger sub-tree of the resolved configuration record.
type Settings struct {
	Level string `mapstructure:"level"`
}

// NewZerologServiceLogger wraps a zerolog.Logger so it satisfies the
// ServiceLogger interface. The supplied logger keeps its own level and output;
// derived children share both.
func NewZerologServiceLogger(log zerolog.Logger) ServiceLogger {
	return &zerologServiceLogger{log: log}
}

// NewBaseLogger builds the single shared base logger for a resolved namespace.
// The configured level is parsed leniently: unknown levels fall back to info.
func NewBaseLogger(w io.Writer, settings Settings, bindings LogFields) ServiceLogger {
	level, err := zerolog.ParseLevel(strings.ToLower(settings.Level))
	if err != nil || settings.Level == "" {
		level = zerolog.InfoLevel
	}
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if len(bindings) > 0 {
		ctx = ctx.Fields(map[string]any(bindings))
	}
	return &zerologServiceLogger{log: ctx.Logger()}
}

// NewBrokerLoggerFactory returns the factory shape the broker expects for its
// internal logger: given the bindings the broker supplies at runtime
// (component name and the like), it merges the statically configured logger
// settings into those bindings and derives a child logger from the shared
// base. The base logger is created once per resolved namespace; the factory
// never allocates a new one.
func NewBrokerLoggerFactory(settings Settings, base ServiceLogger) func(bindings LogFields) ServiceLogger {
	return func(bindings LogFields) ServiceLogger {
		merged := make(LogFields, len(bindings)+1)
		maps.Copy(merged, bindings)
		if settings.Level != "" {
			merged["level"] = settings.Level
		}
		return base.With(merged)
	}
}

type zerologServiceLogger struct {
	log zerolog.Logger
}

func (z *zerologServiceLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return z
	}
	return &zerologServiceLogger{log: z.log.With().Fields(map[string]any(fields)).Logger()}
}

func (z *zerologServiceLogger) Trace(msg string, fields LogFields) {
	z.log.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (z *zerologServiceLogger) Debug(msg string, fields LogFields) {
	z.log.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (z *zerologServiceLogger) Info(msg string, fields LogFields) {
	z.log.Info().Fields(map[string]any(fields)).Msg(msg)
}

func (z *zerologServiceLogger) Warn(msg string, fields LogFields) {
	z.log.Warn().Fields(map[string]any(fields)).Msg(msg)
}

func (z *zerologServiceLogger) Error(msg string, err error, fields LogFields) {
	ev := z.log.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Fields(map[string]any(fields)).Msg(msg)
}

// levelTrace sits below slog.LevelDebug; slog has no native trace level.
const levelTrace = slog.LevelDebug - 4

// NewSlogServiceLogger wraps a slog.Logger so it satisfies the ServiceLogger
// interface, for hosts that standardise on the stdlib logger.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("mfuses: slog logger cannot be nil")
	}
	return &slogServiceLogger{log: log}
}

type slogServiceLogger struct {
	log *slog.Logger
}

func (s *slogServiceLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return s
	}
	return &slogServiceLogger{log: s.log.With(fieldsToArgs(fields)...)}
}

func (s *slogServiceLogger) Trace(msg string, fields LogFields) {
	s.log.Log(context.Background(), levelTrace, msg, fieldsToArgs(fields)...)
}

func (s *slogServiceLogger) Debug(msg string, fields LogFields) {
	s.log.Debug(msg, fieldsToArgs(fields)...)
}

func (s *slogServiceLogger) Info(msg string, fields LogFields) {
	s.log.Info(msg, fieldsToArgs(fields)...)
}

func (s *slogServiceLogger) Warn(msg string, fields LogFields) {
	s.log.Warn(msg, fieldsToArgs(fields)...)
}

func (s *slogServiceLogger) Error(msg string, err error, fields LogFields) {
	args := fieldsToArgs(fields)
	if err != nil {
		args = append(args, "error", err)
	}
	s.log.Error(msg, args...)
}

func fieldsToArgs(fields LogFields) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return args
}

// Nop returns a ServiceLogger that discards everything.
func Nop() ServiceLogger {
	return &zerologServiceLogger{log: zerolog.Nop()}
}

type watermillAdapter struct {
	base ServiceLogger
}

// NewWatermillAdapter converts a ServiceLogger into a Watermill LoggerAdapter
// so the in-process channel broker can reuse the same logger abstraction.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("mfuses: ServiceLogger cannot be nil")
	}
	return &watermillAdapter{base: log}
}

func (w *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	w.base.Error(msg, err, fromWatermillFields(fields))
}

func (w *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	w.base.Info(msg, fromWatermillFields(fields))
}

func (w *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	w.base.Debug(msg, fromWatermillFields(fields))
}

func (w *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	w.base.Trace(msg, fromWatermillFields(fields))
}

func (w *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{base: w.base.With(fromWatermillFields(fields))}
}

func fromWatermillFields(fields watermill.LogFields) LogFields {
	if len(fields) == 0 {
		return nil
	}
	return LogFields(fields)
}
